package rhi

/**
 * @brief Describes a framebuffer as a list of color attachments and an
 * optional depth attachment. All attachments must share dimensions and
 * sample count.
 */
type FramebufferDesc struct {
	ColorAttachments []Texture
	DepthAttachment  Texture
}

/**
 * @brief The shape of a framebuffer: dimensions, sample count and
 * attachment formats. Two framebuffers with equal infos are compatible
 * with the same pipelines.
 */
type FramebufferInfo struct {
	Width        uint32
	Height       uint32
	SampleCount  uint32
	ColorFormats []Format
	DepthFormat  Format
}

// NewFramebufferInfo derives the info from a framebuffer desc.
func NewFramebufferInfo(desc FramebufferDesc) FramebufferInfo {
	info := FramebufferInfo{SampleCount: 1}
	for _, tex := range desc.ColorAttachments {
		td := tex.Desc()
		info.Width = td.Width
		info.Height = td.Height
		if td.SampleCount > 1 {
			info.SampleCount = td.SampleCount
		}
		info.ColorFormats = append(info.ColorFormats, td.Format)
	}
	if desc.DepthAttachment != nil {
		td := desc.DepthAttachment.Desc()
		info.Width = td.Width
		info.Height = td.Height
		if td.SampleCount > 1 {
			info.SampleCount = td.SampleCount
		}
		info.DepthFormat = td.Format
	}
	return info
}

// GetViewport returns a viewport covering the whole framebuffer with a
// 0..1 depth range.
func (fi FramebufferInfo) GetViewport() Viewport {
	return NewViewport(float32(fi.Width), float32(fi.Height))
}

// Equal reports whether two infos describe pipeline compatible
// framebuffers of the same size.
func (fi FramebufferInfo) Equal(other FramebufferInfo) bool {
	if fi.Width != other.Width || fi.Height != other.Height ||
		fi.SampleCount != other.SampleCount || fi.DepthFormat != other.DepthFormat {
		return false
	}
	if len(fi.ColorFormats) != len(other.ColorFormats) {
		return false
	}
	for i, f := range fi.ColorFormats {
		if f != other.ColorFormats[i] {
			return false
		}
	}
	return true
}

type Framebuffer interface {
	Desc() FramebufferDesc
	Info() FramebufferInfo
	Destroy()
}
