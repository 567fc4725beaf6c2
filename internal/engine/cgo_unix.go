//go:build !windows

package engine

/*
  cgo_unix.go — cgo bridge to the native Zireael engine for POSIX builds.

  The worker is the only caller; it drives this exactly like the native ABI
  expects: create once, submit/present/poll per tick, destroy on shutdown.
*/

/*
#cgo CFLAGS: -I${SRCDIR}/../../include
#cgo LDFLAGS: -L${SRCDIR}/../../out/build/posix-clang-release -L${SRCDIR}/../../out/build/posix-clang-debug -lzireael -pthread

#include <stdint.h>
#include <stdlib.h>

#include <zr/zr_config.h>
#include <zr/zr_engine.h>
#include <zr/zr_metrics.h>
#include <zr/zr_caps.h>
#include <zr/zr_debug.h>
#include <zr/zr_result.h>
*/
import "C"

import (
	"context"
	"unsafe"

	"github.com/pkg/errors"
)

type cgoEngine struct {
	ptr *C.zr_engine_t
}

// New creates an Engine by linking the native zireael library via cgo.
func New(cfg Config) (Engine, error) {
	c := toNativeConfig(cfg)

	var e *C.zr_engine_t
	rc := C.engine_create((**C.zr_engine_t)(unsafe.Pointer(&e)), &c)
	if rc != C.ZR_OK {
		return nil, errors.Errorf("engine_create failed: %s", ErrString(int32(rc)))
	}
	return &cgoEngine{ptr: e}, nil
}

func toNativeConfig(cfg Config) C.zr_engine_config_t {
	b := func(v bool) C.uint8_t {
		if v {
			return 1
		}
		return 0
	}
	return C.zr_engine_config_t{
		requested_engine_abi_major:    C.uint32_t(cfg.RequestedABIMajor),
		requested_engine_abi_minor:    C.uint32_t(cfg.RequestedABIMinor),
		requested_engine_abi_patch:    C.uint32_t(cfg.RequestedABIPatch),
		requested_drawlist_version:    C.uint32_t(cfg.RequestedDrawlistVersion),
		requested_event_batch_version: C.uint32_t(cfg.RequestedEventBatchVer),
		limits: C.zr_limits_t{
			arena_max_total_bytes:    C.uint32_t(cfg.Limits.ArenaMaxTotalBytes),
			arena_initial_bytes:      C.uint32_t(cfg.Limits.ArenaInitialBytes),
			out_max_bytes_per_frame:  C.uint32_t(cfg.Limits.OutMaxBytesPerFrame),
			dl_max_total_bytes:       C.uint32_t(cfg.Limits.DLMaxTotalBytes),
			dl_max_cmds:              C.uint32_t(cfg.Limits.DLMaxCmds),
			dl_max_strings:           C.uint32_t(cfg.Limits.DLMaxStrings),
			dl_max_blobs:             C.uint32_t(cfg.Limits.DLMaxBlobs),
			dl_max_clip_depth:        C.uint32_t(cfg.Limits.DLMaxClipDepth),
			dl_max_text_run_segments: C.uint32_t(cfg.Limits.DLMaxTextRunSegments),
			diff_max_damage_rects:    C.uint32_t(cfg.Limits.DiffMaxDamageRects),
		},
		plat: C.plat_config_t{
			requested_color_mode:   C.plat_color_mode_t(cfg.Plat.RequestedColorMode),
			enable_mouse:           b(cfg.Plat.EnableMouse),
			enable_bracketed_paste: b(cfg.Plat.EnableBracketedPaste),
			enable_focus_events:    b(cfg.Plat.EnableFocusEvents),
			enable_osc52:           b(cfg.Plat.EnableOSC52),
		},
		tab_width:                   C.uint32_t(cfg.TabWidth),
		width_policy:                C.uint32_t(cfg.WidthPolicy),
		target_fps:                  C.uint32_t(cfg.FPSCap),
		enable_scroll_optimizations: b(cfg.EnableScrollOptimizations),
		enable_debug_overlay:        b(cfg.EnableDebugOverlay),
		enable_replay_recording:     b(cfg.EnableReplayRecording),
		wait_for_output_drain:       b(cfg.WaitForOutputDrain),
	}
}

func (e *cgoEngine) Destroy() {
	if e == nil || e.ptr == nil {
		return
	}
	C.engine_destroy(e.ptr)
	e.ptr = nil
}

func (e *cgoEngine) PollEvents(timeoutMs int, out []byte) (int, error) {
	if e == nil || e.ptr == nil {
		return 0, errors.New("engine is nil")
	}
	var p *C.uint8_t
	if len(out) != 0 {
		p = (*C.uint8_t)(unsafe.Pointer(&out[0]))
	}
	n := C.engine_poll_events(e.ptr, C.int(timeoutMs), p, C.int(len(out)))
	if n < 0 {
		return 0, errors.Errorf("engine_poll_events failed: %s", ErrString(int32(n)))
	}
	return int(n), nil
}

func (e *cgoEngine) SubmitDrawlist(dl []byte) error {
	if e == nil || e.ptr == nil {
		return errors.New("engine is nil")
	}
	if len(dl) == 0 {
		return errors.New("drawlist is empty")
	}
	rc := C.engine_submit_drawlist(e.ptr, (*C.uint8_t)(unsafe.Pointer(&dl[0])), C.int(len(dl)))
	if rc != C.ZR_OK {
		return errors.Errorf("engine_submit_drawlist failed: %s", ErrString(int32(rc)))
	}
	return nil
}

func (e *cgoEngine) Present() error {
	if e == nil || e.ptr == nil {
		return errors.New("engine is nil")
	}
	rc := C.engine_present(e.ptr)
	if rc != C.ZR_OK {
		return errors.Errorf("engine_present failed: %s", ErrString(int32(rc)))
	}
	return nil
}

func (e *cgoEngine) Metrics() (Metrics, error) {
	if e == nil || e.ptr == nil {
		return Metrics{}, errors.New("engine is nil")
	}
	var m C.zr_metrics_t
	m.struct_size = C.uint32_t(unsafe.Sizeof(m))
	rc := C.engine_get_metrics(e.ptr, &m)
	if rc != C.ZR_OK {
		return Metrics{}, errors.Errorf("engine_get_metrics failed: %s", ErrString(int32(rc)))
	}
	return Metrics{
		FrameIndex:          uint64(m.frame_index),
		BytesEmittedTotal:   uint64(m.bytes_emitted_total),
		BytesEmittedLast:    uint32(m.bytes_emitted_last_frame),
		DirtyLinesLastFrame: uint32(m.dirty_lines_last_frame),
		DirtyColsLastFrame:  uint32(m.dirty_cols_last_frame),
	}, nil
}

func (e *cgoEngine) Caps() (TerminalCaps, error) {
	if e == nil || e.ptr == nil {
		return TerminalCaps{}, errors.New("engine is nil")
	}
	var c C.zr_terminal_caps_t
	rc := C.engine_get_caps(e.ptr, &c)
	if rc != C.ZR_OK {
		return TerminalCaps{}, errors.Errorf("engine_get_caps failed: %s", ErrString(int32(rc)))
	}
	return TerminalCaps{
		ColorMode:             ColorMode(c.color_mode),
		Mouse:                 c.mouse != 0,
		BracketedPaste:        c.bracketed_paste != 0,
		FocusEvents:           c.focus_events != 0,
		OSC52Clipboard:        c.osc52_clipboard != 0,
		SynchronizedUpdate:    c.synchronized_update != 0,
		ScrollRegion:          c.scroll_region != 0,
		CursorShape:           c.cursor_shape != 0,
		OutputWaitWritable:    c.output_wait_writable != 0,
		SGRAttrsSupportedMask: uint32(c.sgr_attrs_supported_mask),
	}, nil
}

func (e *cgoEngine) Debug(ctx context.Context, cmd string, req []byte) ([]byte, error) {
	if e == nil || e.ptr == nil {
		return nil, errors.New("engine is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cCmd := C.CString(cmd)
	defer C.free(unsafe.Pointer(cCmd))

	var reqPtr *C.uint8_t
	if len(req) != 0 {
		reqPtr = (*C.uint8_t)(unsafe.Pointer(&req[0]))
	}
	respCap := DebugRecordMaxBytes
	resp := make([]byte, respCap)
	n := C.engine_debug_dispatch(e.ptr, cCmd, reqPtr, C.int(len(req)), (*C.uint8_t)(unsafe.Pointer(&resp[0])), C.int(respCap))
	if n < 0 {
		return nil, errors.Errorf("engine_debug_dispatch(%s) failed: %s", cmd, ErrString(int32(n)))
	}
	return resp[:n], nil
}
