/*
Loads an ember configuration, reports the effective settings and, with
-watch, keeps reporting them every time the file changes.

With -bake the image at the given path is decoded and written as a
serialized texture descriptor instead.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/ember/engine/assets"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
)

func report(cfg *core.Config) {
	core.LogInfo("log level: %s", cfg.LogLevel)
	core.LogInfo("fence timeout: %s, max retries: %d, parallel record: %t",
		cfg.Sync.FenceTimeout, cfg.Sync.MaxFenceRetries, cfg.Sync.ParallelRecord)
	core.LogInfo("streaming workers: %d, queue size: %d, max pending: %d",
		cfg.Streaming.Workers, cfg.Streaming.QueueSize, cfg.Streaming.MaxPending)
}

func bake(imagePath, outPath string, binding uint, loader *assets.ImageLoader) error {
	img, err := loader.Load(imagePath)
	if err != nil {
		return err
	}
	texture := vulkan.NewTexture(uint32(binding), img, metadata.DefaultSamplerConfig())
	b, err := vulkan.MarshalDescriptor(texture)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, b, 0o644); err != nil {
		core.LogError("failed to write %s: %s", outPath, err)
		return err
	}
	core.LogInfo("baked %s (%dx%d) into %s", imagePath, img.Width, img.Height, outPath)
	return nil
}

func main() {
	path := flag.String("config", "ember.toml", "path of the configuration file")
	watch := flag.Bool("watch", false, "keep running and report every reload")
	bakePath := flag.String("bake", "", "image to bake into a texture descriptor")
	outPath := flag.String("out", "texture.toml", "destination of the baked descriptor")
	binding := flag.Uint("binding", 0, "binding of the baked descriptor")
	flip := flag.Bool("flip", false, "store the baked rows bottom up")
	srgb := flag.Bool("srgb", false, "the baked image is sRGB encoded")
	maxExtent := flag.Int("max-extent", 0, "scale baked images down to this extent, 0 keeps the size")
	flag.Parse()

	if *bakePath != "" {
		loader := &assets.ImageLoader{FlipY: *flip, SRGB: *srgb, MaxExtent: *maxExtent}
		if err := bake(*bakePath, *outPath, *binding, loader); err != nil {
			os.Exit(1)
		}
		return
	}

	if !*watch {
		cfg, err := core.LoadConfig(*path)
		if err != nil {
			os.Exit(1)
		}
		core.SetLogLevel(cfg.LogLevel)
		report(cfg)
		return
	}

	cw, err := core.NewConfigWatcher(*path)
	if err != nil {
		os.Exit(1)
	}
	core.SetLogLevel(cw.Current().LogLevel)
	report(cw.Current())
	cw.Subscribe(report)

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	<-sigCh

	if err := cw.Close(); err != nil {
		core.LogError(err.Error())
	}
}
