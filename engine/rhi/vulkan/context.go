package vulkan

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/torus-gfx/torus/engine/core"
	"github.com/torus-gfx/torus/engine/platform"
)

const meshShaderExtensionName = "VK_NV_mesh_shader"

// context owns the handles shared by every resource the device
// creates. A single graphics queue drives rendering, presentation and
// transfers, which every desktop implementation supports.
type context struct {
	instance  vk.Instance
	surface   vk.Surface
	allocator *vk.AllocationCallbacks

	gpu           vk.PhysicalDevice
	gpuProperties vk.PhysicalDeviceProperties
	gpuMemory     vk.PhysicalDeviceMemoryProperties

	device             vk.Device
	graphicsQueueIndex uint32
	presentQueueIndex  uint32
	graphicsQueue      vk.Queue
	presentQueue       vk.Queue
	commandPool        vk.CommandPool

	deviceExtensions map[string]bool
}

func (c *context) createInstance(applicationName string, enableValidation bool, p *platform.Platform) error {
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		return fmt.Errorf("failed to initialize the Vulkan loader: %w", err)
	}

	extensions := p.GetRequiredExtensionNames()
	var layers []string
	if enableValidation {
		layers = append(layers, "VK_LAYER_KHRONOS_validation")
		core.LogDebug("Vulkan validation layers enabled")
	}

	applicationInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   safeString(applicationName),
		PEngineName:        safeString("Torus"),
		EngineVersion:      uint32(vk.MakeVersion(1, 0, 0)),
	}

	instanceCreateInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &applicationInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}

	var instance vk.Instance
	if result := vk.CreateInstance(&instanceCreateInfo, c.allocator, &instance); result != vk.Success {
		return resultErr("vkCreateInstance", result)
	}
	c.instance = instance

	if err := vk.InitInstance(instance); err != nil {
		return fmt.Errorf("failed to load instance procedures: %w", err)
	}
	return nil
}

func (c *context) createSurface(p *platform.Platform) error {
	surface, err := p.Window.CreateWindowSurface(c.instance, c.allocator)
	if err != nil {
		return fmt.Errorf("failed to create the window surface: %w", err)
	}
	c.surface = vk.SurfaceFromPointer(surface)
	return nil
}

// queueFamilyInfo records which families on a candidate device can
// serve each purpose. An index of -1 means no family qualifies.
type queueFamilyInfo struct {
	graphicsFamilyIndex int32
	presentFamilyIndex  int32
	computeFamilyIndex  int32
}

func (c *context) selectPhysicalDevice() error {
	var deviceCount uint32
	vk.EnumeratePhysicalDevices(c.instance, &deviceCount, nil)
	if deviceCount == 0 {
		return fmt.Errorf("no devices with Vulkan support were found")
	}
	physicalDevices := make([]vk.PhysicalDevice, deviceCount)
	if result := vk.EnumeratePhysicalDevices(c.instance, &deviceCount, physicalDevices); result != vk.Success {
		return resultErr("vkEnumeratePhysicalDevices", result)
	}

	for _, candidate := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(candidate, &properties)
		properties.Deref()

		var features vk.PhysicalDeviceFeatures
		vk.GetPhysicalDeviceFeatures(candidate, &features)
		features.Deref()

		var memory vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(candidate, &memory)
		memory.Deref()

		queues, ok := c.findQueueFamilies(candidate)
		if !ok {
			continue
		}
		if !c.querySwapchainSupported(candidate) {
			continue
		}

		extensions, err := enumerateDeviceExtensions(candidate)
		if err != nil {
			core.LogWarn("skipping device %s: %s", trimNull(properties.DeviceName[:]), err)
			continue
		}
		if !extensions[vk.KhrSwapchainExtensionName] {
			continue
		}

		c.gpu = candidate
		c.gpuProperties = properties
		c.gpuMemory = memory
		c.graphicsQueueIndex = uint32(queues.graphicsFamilyIndex)
		c.presentQueueIndex = uint32(queues.presentFamilyIndex)
		c.deviceExtensions = extensions

		core.LogInfo("selected device: %s", trimNull(properties.DeviceName[:]))
		switch properties.DeviceType {
		case vk.PhysicalDeviceTypeDiscreteGpu:
			core.LogInfo("GPU type is discrete")
		case vk.PhysicalDeviceTypeIntegratedGpu:
			core.LogInfo("GPU type is integrated")
		case vk.PhysicalDeviceTypeVirtualGpu:
			core.LogInfo("GPU type is virtual")
		case vk.PhysicalDeviceTypeCpu:
			core.LogInfo("GPU type is CPU")
		default:
			core.LogInfo("GPU type is unknown")
		}
		core.LogInfo(
			"GPU driver version: %d.%d.%d",
			(properties.DriverVersion>>22)&0x3FF,
			(properties.DriverVersion>>12)&0x3FF,
			properties.DriverVersion&0xFFF,
		)
		return nil
	}
	return fmt.Errorf("no physical device met the requirements")
}

func (c *context) findQueueFamilies(candidate vk.PhysicalDevice) (queueFamilyInfo, bool) {
	info := queueFamilyInfo{
		graphicsFamilyIndex: -1,
		presentFamilyIndex:  -1,
		computeFamilyIndex:  -1,
	}

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(candidate, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(candidate, &familyCount, families)

	for index := range families {
		families[index].Deref()
		flags := families[index].QueueFlags

		if flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 && info.graphicsFamilyIndex == -1 {
			info.graphicsFamilyIndex = int32(index)
		}
		if flags&vk.QueueFlags(vk.QueueComputeBit) != 0 && info.computeFamilyIndex == -1 {
			info.computeFamilyIndex = int32(index)
		}

		var presentSupported vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(candidate, uint32(index), c.surface, &presentSupported)
		if presentSupported == vk.True && info.presentFamilyIndex == -1 {
			info.presentFamilyIndex = int32(index)
		}
	}

	ok := info.graphicsFamilyIndex >= 0 && info.presentFamilyIndex >= 0 && info.computeFamilyIndex >= 0
	return info, ok
}

func (c *context) querySwapchainSupported(candidate vk.PhysicalDevice) bool {
	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(candidate, c.surface, &formatCount, nil)
	var presentModeCount uint32
	vk.GetPhysicalDeviceSurfacePresentModes(candidate, c.surface, &presentModeCount, nil)
	return formatCount > 0 && presentModeCount > 0
}

func enumerateDeviceExtensions(candidate vk.PhysicalDevice) (map[string]bool, error) {
	var extensionCount uint32
	vk.EnumerateDeviceExtensionProperties(candidate, "", &extensionCount, nil)
	properties := make([]vk.ExtensionProperties, extensionCount)
	if result := vk.EnumerateDeviceExtensionProperties(candidate, "", &extensionCount, properties); result != vk.Success {
		return nil, resultErr("vkEnumerateDeviceExtensionProperties", result)
	}

	extensions := make(map[string]bool, extensionCount)
	for index := range properties {
		properties[index].Deref()
		extensions[trimNull(properties[index].ExtensionName[:])] = true
	}
	return extensions, nil
}

func (c *context) createLogicalDevice() error {
	indices := []uint32{c.graphicsQueueIndex}
	if c.presentQueueIndex != c.graphicsQueueIndex {
		indices = append(indices, c.presentQueueIndex)
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensions := []string{vk.KhrSwapchainExtensionName}
	if runtime.GOOS == "darwin" {
		extensions = append(extensions, "VK_KHR_portability_subset")
	}
	if c.deviceExtensions[meshShaderExtensionName] {
		extensions = append(extensions, meshShaderExtensionName)
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{{
			SamplerAnisotropy: vk.True,
		}},
	}

	var device vk.Device
	if result := vk.CreateDevice(c.gpu, &deviceCreateInfo, c.allocator, &device); result != vk.Success {
		return resultErr("vkCreateDevice", result)
	}
	c.device = device

	var graphicsQueue vk.Queue
	vk.GetDeviceQueue(c.device, c.graphicsQueueIndex, 0, &graphicsQueue)
	c.graphicsQueue = graphicsQueue

	var presentQueue vk.Queue
	vk.GetDeviceQueue(c.device, c.presentQueueIndex, 0, &presentQueue)
	c.presentQueue = presentQueue

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: c.graphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if result := vk.CreateCommandPool(c.device, &poolCreateInfo, c.allocator, &pool); result != vk.Success {
		return resultErr("vkCreateCommandPool", result)
	}
	c.commandPool = pool
	return nil
}

// findMemoryIndex returns the index of a memory type matching the
// filter and the wanted property flags, or -1 when none matches.
func (c *context) findMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) int32 {
	for index := uint32(0); index < c.gpuMemory.MemoryTypeCount; index++ {
		c.gpuMemory.MemoryTypes[index].Deref()
		flags := c.gpuMemory.MemoryTypes[index].PropertyFlags
		if typeFilter&(1<<index) != 0 && flags&propertyFlags == propertyFlags {
			return int32(index)
		}
	}
	core.LogWarn("unable to find a suitable memory type")
	return -1
}

func (c *context) destroy() {
	if c.commandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(c.device, c.commandPool, c.allocator)
		c.commandPool = vk.NullCommandPool
	}
	if c.device != nil {
		vk.DestroyDevice(c.device, c.allocator)
		c.device = nil
	}
	if c.surface != vk.NullSurface {
		vk.DestroySurface(c.instance, c.surface, c.allocator)
		c.surface = vk.NullSurface
	}
	if c.instance != nil {
		vk.DestroyInstance(c.instance, c.allocator)
		c.instance = nil
	}
}
