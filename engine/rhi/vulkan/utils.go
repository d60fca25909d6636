package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/torus-gfx/torus/engine/rhi"
)

func resultString(result vk.Result) string {
	switch result {
	case vk.Success:
		return "VK_SUCCESS"
	case vk.NotReady:
		return "VK_NOT_READY"
	case vk.Timeout:
		return "VK_TIMEOUT"
	case vk.Incomplete:
		return "VK_INCOMPLETE"
	case vk.Suboptimal:
		return "VK_SUBOPTIMAL_KHR"
	case vk.ErrorOutOfHostMemory:
		return "VK_ERROR_OUT_OF_HOST_MEMORY"
	case vk.ErrorOutOfDeviceMemory:
		return "VK_ERROR_OUT_OF_DEVICE_MEMORY"
	case vk.ErrorInitializationFailed:
		return "VK_ERROR_INITIALIZATION_FAILED"
	case vk.ErrorDeviceLost:
		return "VK_ERROR_DEVICE_LOST"
	case vk.ErrorLayerNotPresent:
		return "VK_ERROR_LAYER_NOT_PRESENT"
	case vk.ErrorExtensionNotPresent:
		return "VK_ERROR_EXTENSION_NOT_PRESENT"
	case vk.ErrorFeatureNotPresent:
		return "VK_ERROR_FEATURE_NOT_PRESENT"
	case vk.ErrorIncompatibleDriver:
		return "VK_ERROR_INCOMPATIBLE_DRIVER"
	case vk.ErrorFormatNotSupported:
		return "VK_ERROR_FORMAT_NOT_SUPPORTED"
	case vk.ErrorSurfaceLost:
		return "VK_ERROR_SURFACE_LOST_KHR"
	case vk.ErrorOutOfDate:
		return "VK_ERROR_OUT_OF_DATE_KHR"
	case vk.ErrorUnknown:
		return "VK_ERROR_UNKNOWN"
	}
	return fmt.Sprintf("VK_RESULT(%d)", int32(result))
}

// resultErr wraps a non success result into an error, nil otherwise.
func resultErr(op string, result vk.Result) error {
	if result == vk.Success {
		return nil
	}
	return fmt.Errorf("%s failed with %s", op, resultString(result))
}

var end = "\x00"
var endChar byte = '\x00'

// safeString null terminates s for handing to the C API.
func safeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = safeString(list[i])
	}
	return out
}

// trimNull cuts a fixed size C byte array at its terminator.
func trimNull(arr []byte) string {
	for i, b := range arr {
		if b == 0 {
			return string(arr[:i])
		}
	}
	return string(arr)
}

func toVkFormat(f rhi.Format) vk.Format {
	switch f {
	case rhi.FormatR8Unorm:
		return vk.FormatR8Unorm
	case rhi.FormatRG8Unorm:
		return vk.FormatR8g8Unorm
	case rhi.FormatRGBA8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case rhi.FormatSRGBA8Unorm:
		return vk.FormatR8g8b8a8Srgb
	case rhi.FormatBGRA8Unorm:
		return vk.FormatB8g8r8a8Unorm
	case rhi.FormatR16Float:
		return vk.FormatR16Sfloat
	case rhi.FormatRG16Float:
		return vk.FormatR16g16Sfloat
	case rhi.FormatRGBA16Float:
		return vk.FormatR16g16b16a16Sfloat
	case rhi.FormatR32Uint:
		return vk.FormatR32Uint
	case rhi.FormatR32Float:
		return vk.FormatR32Sfloat
	case rhi.FormatRG32Float:
		return vk.FormatR32g32Sfloat
	case rhi.FormatRGB32Float:
		return vk.FormatR32g32b32Sfloat
	case rhi.FormatRGBA32Float:
		return vk.FormatR32g32b32a32Sfloat
	case rhi.FormatD24UnormS8Uint:
		return vk.FormatD24UnormS8Uint
	case rhi.FormatD32Float:
		return vk.FormatD32Sfloat
	}
	return vk.FormatUndefined
}

func fromVkFormat(f vk.Format) rhi.Format {
	switch f {
	case vk.FormatB8g8r8a8Unorm:
		return rhi.FormatBGRA8Unorm
	case vk.FormatR8g8b8a8Unorm:
		return rhi.FormatRGBA8Unorm
	case vk.FormatR8g8b8a8Srgb:
		return rhi.FormatSRGBA8Unorm
	}
	return rhi.FormatUnknown
}

// stateLayout maps a resource state to the image layout a texture in
// that state is expected to be in.
func stateLayout(state rhi.ResourceState, fmt rhi.Format) vk.ImageLayout {
	switch state {
	case rhi.StateCopyDest:
		return vk.ImageLayoutTransferDstOptimal
	case rhi.StateCopySource:
		return vk.ImageLayoutTransferSrcOptimal
	case rhi.StateShaderResource:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case rhi.StateUnorderedAccess:
		return vk.ImageLayoutGeneral
	case rhi.StateRenderTarget:
		return vk.ImageLayoutColorAttachmentOptimal
	case rhi.StateDepthWrite:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case rhi.StatePresent:
		return vk.ImageLayoutPresentSrc
	}
	_ = fmt
	return vk.ImageLayoutGeneral
}

// stateAccess maps a resource state to the access mask used in
// barriers for it.
func stateAccess(state rhi.ResourceState) vk.AccessFlags {
	switch state {
	case rhi.StateCopyDest:
		return vk.AccessFlags(vk.AccessTransferWriteBit)
	case rhi.StateCopySource:
		return vk.AccessFlags(vk.AccessTransferReadBit)
	case rhi.StateVertexBuffer:
		return vk.AccessFlags(vk.AccessVertexAttributeReadBit)
	case rhi.StateIndexBuffer:
		return vk.AccessFlags(vk.AccessIndexReadBit)
	case rhi.StateConstantBuffer:
		return vk.AccessFlags(vk.AccessUniformReadBit)
	case rhi.StateShaderResource:
		return vk.AccessFlags(vk.AccessShaderReadBit)
	case rhi.StateUnorderedAccess:
		return vk.AccessFlags(vk.AccessShaderReadBit) | vk.AccessFlags(vk.AccessShaderWriteBit)
	case rhi.StateRenderTarget:
		return vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
	case rhi.StateDepthWrite:
		return vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit) | vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
	}
	return 0
}

func imageAspect(f rhi.Format) vk.ImageAspectFlags {
	if !f.HasDepth() {
		return vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
	aspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	if f.HasStencil() {
		aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	return aspect
}

func toVkShaderStage(t rhi.ShaderType) vk.ShaderStageFlagBits {
	switch t {
	case rhi.ShaderTypeVertex:
		return vk.ShaderStageVertexBit
	case rhi.ShaderTypePixel:
		return vk.ShaderStageFragmentBit
	case rhi.ShaderTypeCompute:
		return vk.ShaderStageComputeBit
	case rhi.ShaderTypeAmplification:
		return vk.ShaderStageTaskBitNv
	case rhi.ShaderTypeMesh:
		return vk.ShaderStageMeshBitNv
	}
	return vk.ShaderStageAll
}

func toVkStageFlags(t rhi.ShaderType) vk.ShaderStageFlags {
	var flags vk.ShaderStageFlags
	if t&rhi.ShaderTypeVertex != 0 {
		flags |= vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	}
	if t&rhi.ShaderTypePixel != 0 {
		flags |= vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	}
	if t&rhi.ShaderTypeCompute != 0 {
		flags |= vk.ShaderStageFlags(vk.ShaderStageComputeBit)
	}
	if t&rhi.ShaderTypeAmplification != 0 {
		flags |= vk.ShaderStageFlags(vk.ShaderStageTaskBitNv)
	}
	if t&rhi.ShaderTypeMesh != 0 {
		flags |= vk.ShaderStageFlags(vk.ShaderStageMeshBitNv)
	}
	return flags
}

func toVkDescriptorType(t rhi.BindingResourceType) vk.DescriptorType {
	switch t {
	case rhi.ResourceTypeConstantBuffer:
		return vk.DescriptorTypeUniformBuffer
	case rhi.ResourceTypeTextureSRV:
		return vk.DescriptorTypeSampledImage
	case rhi.ResourceTypeTextureUAV:
		return vk.DescriptorTypeStorageImage
	case rhi.ResourceTypeSampler:
		return vk.DescriptorTypeSampler
	}
	return vk.DescriptorTypeSampler
}

func toVkCullMode(m rhi.CullMode) vk.CullModeFlags {
	switch m {
	case rhi.CullFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case rhi.CullNone:
		return vk.CullModeFlags(vk.CullModeNone)
	}
	return vk.CullModeFlags(vk.CullModeBackBit)
}

func toVkTopology(t rhi.PrimitiveType) vk.PrimitiveTopology {
	switch t {
	case rhi.PrimitiveTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	case rhi.PrimitiveLineList:
		return vk.PrimitiveTopologyLineList
	case rhi.PrimitivePointList:
		return vk.PrimitiveTopologyPointList
	}
	return vk.PrimitiveTopologyTriangleList
}

func toVkFilter(f rhi.Filter) vk.Filter {
	if f == rhi.FilterLinear {
		return vk.FilterLinear
	}
	return vk.FilterNearest
}

func toVkMipmapMode(f rhi.Filter) vk.SamplerMipmapMode {
	if f == rhi.FilterLinear {
		return vk.SamplerMipmapModeLinear
	}
	return vk.SamplerMipmapModeNearest
}

func toVkAddressMode(m rhi.AddressMode) vk.SamplerAddressMode {
	switch m {
	case rhi.AddressClamp:
		return vk.SamplerAddressModeClampToEdge
	case rhi.AddressMirror:
		return vk.SamplerAddressModeMirroredRepeat
	}
	return vk.SamplerAddressModeRepeat
}

// bytesToUint32 reinterprets SPIR-V bytecode as the word slice the API
// wants. The blob length must be a multiple of 4.
func bytesToUint32(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("SPIR-V bytecode length %d is not a multiple of 4", len(data))
	}
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = uint32(data[i*4]) | uint32(data[i*4+1])<<8 |
			uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
	}
	return out, nil
}
