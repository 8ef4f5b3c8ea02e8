// Package mirror reproduces a remote template tree in a local directory.
//
// A Mirror walks the tree through a source.Source, listing one directory at a
// time. Files of a directory are fetched in fixed-size batches while its
// subdirectories are walked in parallel, and a shared Progress is fed as new
// files are discovered and downloaded. Reconcile decodes percent-escaped names
// left in the local tree afterwards.
package mirror
