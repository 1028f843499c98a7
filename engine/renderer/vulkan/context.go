package vulkan

import "github.com/spaghettifunk/ember/engine/core"

/**
 * @brief Everything descriptor compilation needs: the device to allocate on
 * and the settings of the current session.
 */
type Context struct {
	Device Device
	Config *core.Config
}

func NewContext(device Device, config *core.Config) *Context {
	if config == nil {
		config = core.DefaultConfig()
	}
	return &Context{
		Device: device,
		Config: config,
	}
}
