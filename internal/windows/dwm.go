//go:build windows

package windows

import (
	"math"
	"unsafe"

	"github.com/Norgate-AV/evelens/internal/native"
)

// RegisterThumbnail implements native.Compositor.
func (b *Backend) RegisterThumbnail(dest, src native.Handle) (native.ThumbnailID, error) {
	var thumb uintptr
	hr, _, _ := procDwmRegisterThumbnail.Call(uintptr(dest), uintptr(src), uintptr(unsafe.Pointer(&thumb)))
	if err := classifyHRESULT("DwmRegisterThumbnail", hr); err != nil {
		return 0, err
	}

	return native.ThumbnailID(thumb), nil
}

// UpdateThumbnail implements native.Compositor.
func (b *Backend) UpdateThumbnail(id native.ThumbnailID, props native.ThumbnailProps) error {
	p := DWM_THUMBNAIL_PROPERTIES{
		DwFlags:               DWM_TNP_RECTDESTINATION | DWM_TNP_OPACITY | DWM_TNP_VISIBLE | DWM_TNP_SOURCECLIENTAREAONLY,
		RcDestination:         toRECT(props.Destination),
		Opacity:               uint8(math.Round(math.Min(math.Max(props.Opacity, 0), 1) * 255)),
		FVisible:              boolToInt32(props.Visible),
		FSourceClientAreaOnly: boolToInt32(props.ClientOnly),
	}

	hr, _, _ := procDwmUpdateThumbProps.Call(uintptr(id), uintptr(unsafe.Pointer(&p)))
	return classifyHRESULT("DwmUpdateThumbnailProperties", hr)
}

// UnregisterThumbnail implements native.Compositor.
func (b *Backend) UnregisterThumbnail(id native.ThumbnailID) error {
	hr, _, _ := procDwmUnregisterThumb.Call(uintptr(id))
	return classifyHRESULT("DwmUnregisterThumbnail", hr)
}

func boolToInt32(v bool) int32 {
	if v {
		return 1
	}

	return 0
}
