// Package mmap maps input files read-only so that large splat captures can
// be parsed without first copying them onto the heap.
//
//	m, err := mmap.Open("scene.ply")
//	if err != nil { ... }
//	defer m.Close()
//
//	_ = m.Advise(mmap.AccessSequential)
//	data := m.Bytes()
//
// Unix uses mmap(2) and madvise(2); Windows uses CreateFileMapping and
// MapViewOfFile, where Advise is a no-op.
//
// Bytes must not be used after Close returns.
package mmap
