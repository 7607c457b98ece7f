// Package ssh is the remote-session layer of hostctl.
//
// A [Client] holds one SSH connection per host for the duration of a run.
// Commands execute in a fresh session each, either buffered (output returned
// once the command exits) or streamed (output copied to caller writers while
// still being captured). File transfers go over an SFTP subsystem opened on
// the same connection, which replaces rewriting files through heredocs.
//
// Every blocking call takes a context. Cancelling it, or exceeding the
// per-command timeout, signals the remote process and tears the session down.
//
// Host keys are verified through the HostKeyCallback supplied in [Config];
// there is no implicit fallback to accepting any key.
package ssh
