// Package cas implements a content-addressed storage (CAS) binary node
// format: a self-describing, hash-identified node format with three node
// kinds (file root, file continuation, directory), automatic B-tree
// chunking for large files, and strict byte-level validation.
//
// Any stored byte sequence hashes to its own key, so identity equals
// content and equality is decidable by hash comparison alone.
//
// # Basic usage
//
//	store := cas.NewMemStore()
//	ctl := cas.NewController(store, cas.SHA256{}, cas.DefaultNodeLimit)
//
//	res, err := ctl.WriteFile(ctx, []byte("hello"), "text/plain")
//	if err != nil {
//	    // handle error
//	}
//
//	data, complete, err := ctl.ReadFile(ctx, res.Key)
//
// # Error handling
//
// Every failure mode named in SPEC_FULL.md §7 is a sentinel or structured
// error value in errors.go. Callers classify with [errors.Is] /
// [errors.As], never by matching error strings.
package cas
