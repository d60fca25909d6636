package render

import (
	"github.com/torus-gfx/torus/engine/rhi"
	"github.com/torus-gfx/torus/engine/shaders"
)

/**
 * @brief Samplers and the fullscreen blit shared by every render pass.
 * The blit pipeline is rebuilt whenever the destination framebuffer
 * shape changes, which happens on swapchain resize.
 */
type CommonPasses struct {
	device rhi.Device

	PointClampSampler      rhi.Sampler
	LinearClampSampler     rhi.Sampler
	AnisotropicWrapSampler rhi.Sampler

	blitVertexShader rhi.Shader
	blitPixelShader  rhi.Shader
	blitLayout       rhi.BindingLayout

	blitPipeline   rhi.GraphicsPipeline
	blitTargetInfo rhi.FramebufferInfo
}

func NewCommonPasses(device rhi.Device, factory *shaders.Factory) (*CommonPasses, error) {
	c := &CommonPasses{device: device}

	var err error
	if c.blitVertexShader, err = factory.CreateShader("blit", "main_vs", rhi.ShaderTypeVertex); err != nil {
		return nil, err
	}
	if c.blitPixelShader, err = factory.CreateShader("blit", "main_ps", rhi.ShaderTypePixel); err != nil {
		return nil, err
	}

	if c.PointClampSampler, err = device.NewSampler(rhi.SamplerDesc{
		MinFilter: rhi.FilterNearest,
		MagFilter: rhi.FilterNearest,
		MipFilter: rhi.FilterNearest,
		AddressU:  rhi.AddressClamp,
		AddressV:  rhi.AddressClamp,
		AddressW:  rhi.AddressClamp,
	}); err != nil {
		return nil, err
	}
	if c.LinearClampSampler, err = device.NewSampler(rhi.NewLinearClampSamplerDesc()); err != nil {
		return nil, err
	}
	if c.AnisotropicWrapSampler, err = device.NewSampler(rhi.NewLinearWrapSamplerDesc(16)); err != nil {
		return nil, err
	}

	c.blitLayout, err = device.NewBindingLayout(rhi.BindingLayoutDesc{
		Visibility: rhi.ShaderTypePixel,
		Bindings: []rhi.BindingLayoutItem{
			{Slot: 0, Type: rhi.ResourceTypeTextureSRV, Format: rhi.FormatRGBA16Float},
			{Slot: 0, Type: rhi.ResourceTypeSampler},
		},
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// BlitTexture draws the source texture over the whole framebuffer with
// a fullscreen triangle.
func (c *CommonPasses) BlitTexture(commandList rhi.CommandList, framebuffer rhi.Framebuffer, source rhi.Texture, cache *BindingCache) error {
	info := framebuffer.Info()
	if c.blitPipeline == nil || !c.blitTargetInfo.Equal(info) {
		if c.blitPipeline != nil {
			c.blitPipeline.Destroy()
			c.blitPipeline = nil
		}
		pipeline, err := c.device.NewGraphicsPipeline(rhi.GraphicsPipelineDesc{
			PrimType:       rhi.PrimitiveTriangleList,
			VertexShader:   c.blitVertexShader,
			PixelShader:    c.blitPixelShader,
			BindingLayouts: []rhi.BindingLayout{c.blitLayout},
			RenderState:    rhi.RenderState{CullMode: rhi.CullNone},
			DebugName:      "BlitPipeline",
		}, framebuffer)
		if err != nil {
			return err
		}
		c.blitPipeline = pipeline
		c.blitTargetInfo = info
	}

	bindingSet, err := cache.GetOrCreateBindingSet(rhi.BindingSetDesc{
		Bindings: []rhi.BindingSetItem{
			rhi.BindingTextureSRV(0, source),
			rhi.BindingSampler(0, c.PointClampSampler),
		},
	}, c.blitLayout)
	if err != nil {
		return err
	}

	commandList.SetGraphicsState(rhi.GraphicsState{
		Pipeline:    c.blitPipeline,
		Framebuffer: framebuffer,
		Viewports:   []rhi.Viewport{info.GetViewport()},
		BindingSets: []rhi.BindingSet{bindingSet},
	})
	commandList.Draw(rhi.NewDrawArguments(3))
	return nil
}

func (c *CommonPasses) Destroy() {
	if c.blitPipeline != nil {
		c.blitPipeline.Destroy()
		c.blitPipeline = nil
	}
	if c.blitLayout != nil {
		c.blitLayout.Destroy()
		c.blitLayout = nil
	}
	for _, sampler := range []rhi.Sampler{c.PointClampSampler, c.LinearClampSampler, c.AnisotropicWrapSampler} {
		if sampler != nil {
			sampler.Destroy()
		}
	}
	c.PointClampSampler = nil
	c.LinearClampSampler = nil
	c.AnisotropicWrapSampler = nil
}
