// Package naming provides consistent names for the files and objects hostctl
// creates.
//
// Backups sit next to the file they preserve as {path}.bak.{unix seconds}, so
// `ls` lists them in creation order. Archives pushed to object storage are
// keyed {project}/{project}-{UTC timestamp}{ext}, so every push is kept.
package naming
