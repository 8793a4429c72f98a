// Package viewer renders a running simulation's pixel buffer into a window.
// It never touches simulation state beyond the read-only Pixels/Dimensions
// accessors and RequestStop: everything here is presentation.
package viewer

import (
	"fmt"
	"image"
	"image/draw"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	xdraw "golang.org/x/image/draw"

	"github.com/blastocyst/cpm"
)

func init() {
	// GLFW and most GPU API bindings require their calls to originate from
	// the same OS thread that created the window.
	runtime.LockOSThread()
}

// Viewer owns a glfw window and a minimal wgpu blit pipeline that upscales
// and presents a Simulation's RGBA pixel buffer every frame.
type Viewer struct {
	sim *cpm.Simulation

	window *glfw.Window

	instance      *wgpu.Instance
	surface       *wgpu.Surface
	adapter       *wgpu.Adapter
	device        *wgpu.Device
	queue         *wgpu.Queue
	surfaceConfig *wgpu.SurfaceConfiguration

	pipeline  *wgpu.RenderPipeline
	sampler   *wgpu.Sampler
	texture   *wgpu.Texture
	textureBG *wgpu.BindGroup

	// projection is unused by the blit shader directly (the full-screen
	// quad already covers clip space) but is kept and recomputed on
	// resize so a future non-1:1 letterboxed layout has it ready; see
	// DESIGN.md.
	projection mgl32.Mat4

	scaled *image.RGBA
	scale  int
}

// New creates a window sized to sim's lattice dimensions times pixelScale
// and brings up the GPU device/surface/pipeline needed to present it.
func New(sim *cpm.Simulation, pixelScale int, title string) (*Viewer, error) {
	w, h := sim.Dimensions()
	winW, winH := w*pixelScale, h*pixelScale

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("viewer: glfw init: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err := glfw.CreateWindow(winW, winH, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("viewer: create window: %w", err)
	}

	v := &Viewer{
		sim:    sim,
		window: window,
		scaled: image.NewRGBA(image.Rect(0, 0, winW, winH)),
		scale:  pixelScale,
	}

	if err := v.initGPU(winW, winH); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, err
	}

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		v.resize(width, height)
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
			sim.RequestStop()
		}
	})

	return v, nil
}

func (v *Viewer) initGPU(w, h int) error {
	v.instance = wgpu.CreateInstance(nil)

	v.surface = v.instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(v.window))

	adapter, err := v.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: v.surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("viewer: request adapter: %w", err)
	}
	v.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "embryosim viewer"})
	if err != nil {
		return fmt.Errorf("viewer: request device: %w", err)
	}
	v.device = device
	v.queue = device.GetQueue()

	caps := v.surface.GetCapabilities(adapter)
	v.surfaceConfig = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(w),
		Height:      uint32(h),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	v.surface.Configure(adapter, device, v.surfaceConfig)

	shader, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "blit",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: blitWGSL},
	})
	if err != nil {
		return fmt.Errorf("viewer: shader module: %w", err)
	}
	defer shader.Release()

	bgl, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "blit BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("viewer: bind group layout: %w", err)
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "blit pipeline",
		Layout: device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{BindGroupLayouts: []*wgpu.BindGroupLayout{bgl}}),
		Vertex: wgpu.VertexState{Module: shader, EntryPoint: "vs_main"},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets:    []wgpu.ColorTargetState{{Format: v.surfaceConfig.Format, WriteMask: wgpu.ColorWriteMaskAll}},
		},
		Primitive: wgpu.PrimitiveState{Topology: wgpu.PrimitiveTopologyTriangleList},
	})
	if err != nil {
		return fmt.Errorf("viewer: render pipeline: %w", err)
	}
	v.pipeline = pipeline

	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter: wgpu.FilterModeNearest,
		MagFilter: wgpu.FilterModeNearest,
	})
	if err != nil {
		return fmt.Errorf("viewer: sampler: %w", err)
	}
	v.sampler = sampler

	if err := v.createTexture(w, h, bgl); err != nil {
		return err
	}

	v.projection = mgl32.Ortho2D(0, float32(w), float32(h), 0)
	return nil
}

func (v *Viewer) createTexture(w, h int, bgl *wgpu.BindGroupLayout) error {
	texture, err := v.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:       "frame",
		Size:        wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount: 1,
		Dimension:   wgpu.TextureDimension2D,
		Format:      wgpu.TextureFormatRGBA8Unorm,
		Usage:       wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("viewer: create texture: %w", err)
	}
	v.texture = texture

	view, err := texture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("viewer: texture view: %w", err)
	}

	bg, err := v.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "blit bind group",
		Layout: bgl,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Sampler: v.sampler},
			{Binding: 1, TextureView: view},
		},
	})
	if err != nil {
		return fmt.Errorf("viewer: bind group: %w", err)
	}
	v.textureBG = bg
	return nil
}

func (v *Viewer) resize(w, h int) {
	if w == 0 || h == 0 {
		return
	}
	v.surfaceConfig.Width = uint32(w)
	v.surfaceConfig.Height = uint32(h)
	v.surface.Configure(v.adapter, v.device, v.surfaceConfig)
	v.projection = mgl32.Ortho2D(0, float32(w), float32(h), 0)
}

// ShouldClose reports whether the window has received a close request
// (the OS close button, or Escape via the key callback).
func (v *Viewer) ShouldClose() bool { return v.window.ShouldClose() }

// PollEvents drains the window's event queue. Call once per displayed
// frame, before Render.
func (v *Viewer) PollEvents() { glfw.PollEvents() }

// Render upscales the simulation's current pixel buffer with nearest-
// neighbour sampling (preserving hard cell boundaries rather than
// blurring them), uploads it, and presents one frame.
func (v *Viewer) Render() error {
	w, h := v.sim.Dimensions()
	src := &image.RGBA{
		Pix:    v.sim.Pixels(),
		Stride: w * 4,
		Rect:   image.Rect(0, 0, w, h),
	}
	xdraw.NearestNeighbor.Scale(v.scaled, v.scaled.Bounds(), src, src.Bounds(), draw.Src, nil)

	bw, bh := v.scaled.Bounds().Dx(), v.scaled.Bounds().Dy()
	err := v.queue.WriteTexture(
		v.texture.AsImageCopy(),
		v.scaled.Pix,
		&wgpu.TextureDataLayout{BytesPerRow: uint32(bw) * 4, RowsPerImage: uint32(bh)},
		&wgpu.Extent3D{Width: uint32(bw), Height: uint32(bh), DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("viewer: write texture: %w", err)
	}

	nextTexture, err := v.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("viewer: get current texture: %w", err)
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("viewer: create view: %w", err)
	}
	defer view.Release()

	encoder, err := v.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("viewer: command encoder: %w", err)
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	pass.SetPipeline(v.pipeline)
	pass.SetBindGroup(0, v.textureBG, nil)
	pass.Draw(6, 1, 0, 0)
	if err := pass.End(); err != nil {
		return fmt.Errorf("viewer: end render pass: %w", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("viewer: encoder finish: %w", err)
	}
	v.queue.Submit(cmd)
	v.surface.Present()
	v.device.Poll(false, nil)
	return nil
}

// Close releases the GPU device/surface and destroys the window.
func (v *Viewer) Close() {
	if v.device != nil {
		v.device.Release()
	}
	if v.window != nil {
		v.window.Destroy()
	}
	glfw.Terminate()
}
