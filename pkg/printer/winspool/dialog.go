package winspool

import (
	"github.com/novvoo/go-winprint/pkg/printer"
)

// DialogResult is the outcome of the interactive print dialog. When not
// cancelled it carries a ready device context configured by the user's
// choices; Free must be called on every path to release it.
type DialogResult struct {
	Cancelled bool
	// Device is the printer the user selected.
	Device string
	// DC is the configured device context; owned by this result.
	DC DC
	// DevMode is a copy of the dialog's configuration record.
	DevMode *DevMode
	Copies  int
	// AllPages is set unless the user restricted the page range.
	AllPages bool
	FromPage int
	ToPage   int

	api   API
	freed bool
}

// Free releases the device context. Safe to call more than once and on a
// cancelled result.
func (r *DialogResult) Free() {
	if r == nil || r.freed {
		return
	}
	r.freed = true
	if r.DC != 0 {
		r.api.DeleteDC(r.DC)
		r.DC = 0
	}
}

// ShowDialog presents the system print dialog, pre-selecting the named
// device (when non-empty) and seeding the copy count. The page-range
// controls span 1..9999 so the dialog displays "All" until the user narrows
// them. Cancellation is not an error: the result has Cancelled set and no
// live handles. Dialog-allocated global memory is freed here on every path.
func ShowDialog(api API, device string, copies int) (*DialogResult, error) {
	if copies < 1 {
		copies = 1
	}
	req := &DialogRequest{
		Device:   device,
		Copies:   copies,
		FromPage: 1,
		ToPage:   9999,
		MinPage:  1,
		MaxPage:  9999,
	}

	reply, err := api.ShowPrintDialog(req)
	if err != nil {
		if reply != nil {
			freeReply(api, reply)
		}
		return nil, &printer.DialogError{Err: err}
	}

	if reply.Cancelled {
		freeReply(api, reply)
		return &DialogResult{Cancelled: true, api: api}, nil
	}

	res := &DialogResult{
		Device:   reply.Device,
		DC:       reply.DC,
		Copies:   reply.Copies,
		AllPages: !reply.LimitPages,
		FromPage: reply.FromPage,
		ToPage:   reply.ToPage,
		api:      api,
	}
	if res.Copies < 1 {
		res.Copies = 1
	}
	if reply.DevMode != nil {
		res.DevMode = reply.DevMode.Clone()
	}
	// The global memory blocks are only needed to read the devmode and
	// device name, both copied above.
	api.GlobalFree(reply.DevModeMem)
	api.GlobalFree(reply.DevNamesMem)
	return res, nil
}

// freeReply releases everything a reply can carry, including the device
// context on the cancel and error paths.
func freeReply(api API, reply *DialogReply) {
	api.GlobalFree(reply.DevModeMem)
	api.GlobalFree(reply.DevNamesMem)
	if reply.DC != 0 {
		api.DeleteDC(reply.DC)
	}
}
