// Package config loads the hostctl inventory.
//
// The inventory (hostctl.yaml) names every host the operator manages,
// together with how to authenticate against it. Secrets never live in the
// file itself: passwords are read from the environment variable named by
// password_env, keys from key_file. Optional sections configure the run
// history database, a Prometheus Pushgateway and the S3 bucket that
// receives packaged artifacts.
package config
