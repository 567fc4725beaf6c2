//go:build windows

package engine

// dll_windows.go — Windows engine calls via DLL (no cgo toolchain
// required), mirroring cgo_unix.go's ABI surface through kernel32's
// DLL loader.

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"unsafe"

	"github.com/pkg/errors"
)

type dllEngine struct {
	ptr uintptr
}

type metricsRaw struct {
	structSize uint32

	negABIMajor uint32
	negABIMinor uint32
	negABIPatch uint32

	negDrawlistVersion   uint32
	negEventBatchVersion uint32

	frameIndex uint64
	fps        uint32
	_pad0      uint32

	bytesEmittedTotal     uint64
	bytesEmittedLastFrame uint32
	_pad1                 uint32

	dirtyLinesLastFrame uint32
	dirtyColsLastFrame  uint32

	usInputLastFrame    uint32
	usDrawlistLastFrame uint32
	usDiffLastFrame     uint32
	usWriteLastFrame    uint32

	eventsOutLastPoll  uint32
	eventsDroppedTotal uint32

	arenaFrameHighWaterBytes      uint64
	arenaPersistentHighWaterBytes uint64
}

type capsRaw struct {
	colorMode           uint8
	mouse               uint8
	bracketedPaste      uint8
	focusEvents         uint8
	osc52Clipboard      uint8
	synchronizedUpdate  uint8
	scrollRegion        uint8
	cursorShape         uint8
	outputWaitWritable  uint8
	_pad                [3]uint8
	sgrAttrsSupportedMask uint32
}

var (
	once sync.Once
	dll  *syscall.DLL

	procCreate        *syscall.Proc
	procDestroy       *syscall.Proc
	procPollEvents    *syscall.Proc
	procSubmitDL      *syscall.Proc
	procPresent       *syscall.Proc
	procGetMetrics    *syscall.Proc
	procGetCaps       *syscall.Proc
	procDebugDispatch *syscall.Proc
	initErr           error
)

// New creates an Engine by loading zireael.dll and resolving its exports.
func New(cfg Config) (Engine, error) {
	if err := initDLL(); err != nil {
		return nil, err
	}
	if procCreate == nil {
		return nil, errors.New("engine_create proc missing")
	}

	native := toNativeConfigBytes(cfg)
	var ePtr uintptr
	r1, _, _ := procCreate.Call(
		uintptr(unsafe.Pointer(&ePtr)),
		uintptr(unsafe.Pointer(&native[0])),
	)
	rc := int32(r1)
	if rc != OK {
		return nil, errors.Errorf("engine_create failed: %s", ErrString(rc))
	}
	return &dllEngine{ptr: ePtr}, nil
}

func initDLL() error {
	once.Do(func() {
		path, err := findDLLPath()
		if err != nil {
			initErr = err
			return
		}
		d, derr := syscall.LoadDLL(path)
		if derr != nil {
			initErr = errors.Wrapf(derr, "load zireael dll (%s)", path)
			return
		}
		dll = d

		find := func(name string) *syscall.Proc {
			p, e := dll.FindProc(name)
			if e != nil && initErr == nil {
				initErr = errors.Wrapf(e, "find proc %s", name)
			}
			return p
		}

		procCreate = find("engine_create")
		procDestroy = find("engine_destroy")
		procPollEvents = find("engine_poll_events")
		procSubmitDL = find("engine_submit_drawlist")
		procPresent = find("engine_present")
		procGetMetrics = find("engine_get_metrics")
		procGetCaps = find("engine_get_caps")
		procDebugDispatch = find("engine_debug_dispatch")
	})
	return initErr
}

func findDLLPath() (string, error) {
	if p := os.Getenv("ZR_DLL_PATH"); p != "" {
		return filepath.Abs(p)
	}

	rel := filepath.FromSlash("out/build/windows-clangcl-debug/zireael.dll")
	rel2 := filepath.FromSlash("out/build/windows-clangcl-release/zireael.dll")

	wd, _ := os.Getwd()
	var candidates []string
	for up := 0; up <= 5; up++ {
		base := wd
		for i := 0; i < up; i++ {
			base = filepath.Dir(base)
		}
		candidates = append(candidates, filepath.Join(base, rel))
		candidates = append(candidates, filepath.Join(base, rel2))
	}

	for _, p := range candidates {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", errors.New("zireael.dll not found (set ZR_DLL_PATH or build via CMake presets)")
}

// toNativeConfigBytes packs Config into the native zr_engine_config_t's
// exact byte layout, since the DLL path has no cgo struct to marshal into.
// The field order and sizes must track include/zr/zr_config.h.
func toNativeConfigBytes(cfg Config) []byte {
	buf := make([]byte, 96)
	putU32 := func(off int, v uint32) {
		buf[off] = byte(v)
		buf[off+1] = byte(v >> 8)
		buf[off+2] = byte(v >> 16)
		buf[off+3] = byte(v >> 24)
	}
	putU8 := func(off int, v bool) {
		if v {
			buf[off] = 1
		}
	}
	putU32(0, cfg.RequestedABIMajor)
	putU32(4, cfg.RequestedABIMinor)
	putU32(8, cfg.RequestedABIPatch)
	putU32(12, cfg.RequestedDrawlistVersion)
	putU32(16, cfg.RequestedEventBatchVer)
	putU32(20, cfg.Limits.ArenaMaxTotalBytes)
	putU32(24, cfg.Limits.ArenaInitialBytes)
	putU32(28, cfg.Limits.OutMaxBytesPerFrame)
	putU32(32, cfg.Limits.DLMaxTotalBytes)
	putU32(36, cfg.Limits.DLMaxCmds)
	putU32(40, cfg.Limits.DLMaxStrings)
	putU32(44, cfg.Limits.DLMaxBlobs)
	putU32(48, cfg.Limits.DLMaxClipDepth)
	putU32(52, cfg.Limits.DLMaxTextRunSegments)
	putU32(56, cfg.Limits.DiffMaxDamageRects)
	buf[60] = byte(cfg.Plat.RequestedColorMode)
	putU8(61, cfg.Plat.EnableMouse)
	putU8(62, cfg.Plat.EnableBracketedPaste)
	putU8(63, cfg.Plat.EnableFocusEvents)
	putU8(64, cfg.Plat.EnableOSC52)
	putU32(68, cfg.TabWidth)
	putU32(72, cfg.WidthPolicy)
	putU32(76, cfg.FPSCap)
	putU8(80, cfg.EnableScrollOptimizations)
	putU8(81, cfg.EnableDebugOverlay)
	putU8(82, cfg.EnableReplayRecording)
	putU8(83, cfg.WaitForOutputDrain)
	return buf
}

func (e *dllEngine) Destroy() {
	if e == nil || e.ptr == 0 || procDestroy == nil {
		return
	}
	procDestroy.Call(e.ptr)
	e.ptr = 0
}

func (e *dllEngine) PollEvents(timeoutMs int, out []byte) (int, error) {
	if e == nil || e.ptr == 0 || procPollEvents == nil {
		return 0, errors.New("engine is nil")
	}
	var outPtr uintptr
	if len(out) != 0 {
		outPtr = uintptr(unsafe.Pointer(&out[0]))
	}
	r1, _, _ := procPollEvents.Call(e.ptr, uintptr(int32(timeoutMs)), outPtr, uintptr(int32(len(out))))
	n := int32(r1)
	if n < 0 {
		return 0, errors.Errorf("engine_poll_events failed: %s", ErrString(n))
	}
	return int(n), nil
}

func (e *dllEngine) SubmitDrawlist(dl []byte) error {
	if e == nil || e.ptr == 0 || procSubmitDL == nil {
		return errors.New("engine is nil")
	}
	if len(dl) == 0 {
		return errors.New("drawlist is empty")
	}
	r1, _, _ := procSubmitDL.Call(e.ptr, uintptr(unsafe.Pointer(&dl[0])), uintptr(int32(len(dl))))
	rc := int32(r1)
	if rc != OK {
		return errors.Errorf("engine_submit_drawlist failed: %s", ErrString(rc))
	}
	return nil
}

func (e *dllEngine) Present() error {
	if e == nil || e.ptr == 0 || procPresent == nil {
		return errors.New("engine is nil")
	}
	r1, _, _ := procPresent.Call(e.ptr)
	rc := int32(r1)
	if rc != OK {
		return errors.Errorf("engine_present failed: %s", ErrString(rc))
	}
	return nil
}

func (e *dllEngine) Metrics() (Metrics, error) {
	if e == nil || e.ptr == 0 || procGetMetrics == nil {
		return Metrics{}, errors.New("engine is nil")
	}
	var raw metricsRaw
	raw.structSize = uint32(unsafe.Sizeof(raw))
	r1, _, _ := procGetMetrics.Call(e.ptr, uintptr(unsafe.Pointer(&raw)))
	rc := int32(r1)
	if rc != OK {
		return Metrics{}, errors.Errorf("engine_get_metrics failed: %s", ErrString(rc))
	}
	return Metrics{
		FrameIndex:          raw.frameIndex,
		BytesEmittedTotal:   raw.bytesEmittedTotal,
		BytesEmittedLast:    raw.bytesEmittedLastFrame,
		DirtyLinesLastFrame: raw.dirtyLinesLastFrame,
		DirtyColsLastFrame:  raw.dirtyColsLastFrame,
	}, nil
}

func (e *dllEngine) Caps() (TerminalCaps, error) {
	if e == nil || e.ptr == 0 || procGetCaps == nil {
		return TerminalCaps{}, errors.New("engine is nil")
	}
	var raw capsRaw
	r1, _, _ := procGetCaps.Call(e.ptr, uintptr(unsafe.Pointer(&raw)))
	rc := int32(r1)
	if rc != OK {
		return TerminalCaps{}, errors.Errorf("engine_get_caps failed: %s", ErrString(rc))
	}
	return TerminalCaps{
		ColorMode:             ColorMode(raw.colorMode),
		Mouse:                 raw.mouse != 0,
		BracketedPaste:        raw.bracketedPaste != 0,
		FocusEvents:           raw.focusEvents != 0,
		OSC52Clipboard:        raw.osc52Clipboard != 0,
		SynchronizedUpdate:    raw.synchronizedUpdate != 0,
		ScrollRegion:          raw.scrollRegion != 0,
		CursorShape:           raw.cursorShape != 0,
		OutputWaitWritable:    raw.outputWaitWritable != 0,
		SGRAttrsSupportedMask: raw.sgrAttrsSupportedMask,
	}, nil
}

func (e *dllEngine) Debug(ctx context.Context, cmd string, req []byte) ([]byte, error) {
	if e == nil || e.ptr == 0 || procDebugDispatch == nil {
		return nil, errors.New("engine is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cCmd, err := syscall.BytePtrFromString(cmd)
	if err != nil {
		return nil, err
	}
	var reqPtr uintptr
	if len(req) != 0 {
		reqPtr = uintptr(unsafe.Pointer(&req[0]))
	}
	resp := make([]byte, DebugRecordMaxBytes)
	r1, _, _ := procDebugDispatch.Call(
		e.ptr,
		uintptr(unsafe.Pointer(cCmd)),
		reqPtr,
		uintptr(int32(len(req))),
		uintptr(unsafe.Pointer(&resp[0])),
		uintptr(int32(len(resp))),
	)
	n := int32(r1)
	if n < 0 {
		return nil, errors.Errorf("engine_debug_dispatch(%s) failed: %s", cmd, ErrString(n))
	}
	return resp[:n], nil
}
