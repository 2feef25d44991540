//go:build !windows

package lp

import "github.com/novvoo/go-winprint/pkg/printer"

func init() {
	printer.Register(New())
}
