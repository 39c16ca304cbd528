// Package fs abstracts the file operations the local blob store performs
// when it publishes a blob, so tests can inject write, sync, close and
// rename failures.
//
// Production code uses [Default]:
//
//	f, err := fs.Default.CreateTemp(dir, ".tmp-scene.glb-*")
//
// Tests wrap it in a [FaultyFS]:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".tmp-", fs.Fault{FailAfterBytes: 1024})
//
// Operations take no context: they are short local syscalls that cannot be
// interrupted once issued.
package fs
