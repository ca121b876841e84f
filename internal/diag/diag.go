// Package diag prints error chains for a human. cmd/myshell uses
// PrintChain when the shell fails to start; no builtin flag and no
// admin HTTP middleware call into this package. Adapted from
// zmux-server's pkg/fmtt error-chain dumper,
// built on the same github.com/davecgh/go-spew dependency for structural
// dumps of non-trivial error values.
package diag

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/davecgh/go-spew/spew"
)

// PrintChain writes one line per layer of err's Unwrap chain to w:
// index, dynamic type, and message.
func PrintChain(w io.Writer, err error) {
	if err == nil {
		fmt.Fprintln(w, "<nil>")
		return
	}
	for i, e := 0, err; e != nil; i, e = i+1, errors.Unwrap(e) {
		fmt.Fprintf(w, "[%d] %T: %v\n", i, e, e)
	}
}

// PrintChainVerbose is PrintChain plus a spew dump and a reflective field
// listing for each layer, plus a note when a layer implements Unwrap or
// the non-standard Cause() convention. Nothing inside this module calls
// it.
func PrintChainVerbose(w io.Writer, err error) {
	for i := 0; err != nil; err = errors.Unwrap(err) {
		fmt.Fprintf(w, "[%d] %T\n", i, err)
		fmt.Fprintf(w, "   Error(): %v\n", err)

		spew.Fdump(w, err)

		rv := reflect.ValueOf(err)
		rt := reflect.TypeOf(err)
		if rt.Kind() == reflect.Ptr {
			rv = rv.Elem()
			rt = rt.Elem()
		}
		if rt.Kind() == reflect.Struct {
			for j := 0; j < rt.NumField(); j++ {
				f := rt.Field(j)
				v := rv.Field(j)
				if v.CanInterface() {
					fmt.Fprintf(w, "   field %s (%s): %+v\n", f.Name, f.Type, v.Interface())
				}
			}
		}

		if u, ok := err.(interface{ Unwrap() error }); ok {
			fmt.Fprintf(w, "   has Unwrap(): %T\n", u.Unwrap())
		}
		if c, ok := err.(interface{ Cause() error }); ok {
			fmt.Fprintf(w, "   has Cause(): %T\n", c.Cause())
		}

		i++
	}
}
