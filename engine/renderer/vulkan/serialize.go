package vulkan

import (
	"encoding/base64"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

const (
	recordBuffer       = "buffer"
	recordTexture      = "texture"
	recordTextureArray = "texture_array"
)

type imageRecord struct {
	Width  uint32               `toml:"width"`
	Height uint32               `toml:"height"`
	Format metadata.ImageFormat `toml:"format"`
	Pixels string               `toml:"pixels"`
}

type textureRecord struct {
	Sampler metadata.SamplerConfig `toml:"sampler"`
	Image   *imageRecord           `toml:"image,omitempty"`
}

// descriptorRecord is the on-disk form of every descriptor variant.
type descriptorRecord struct {
	Type string `toml:"type"`
	DescriptorBinding
	Data     []string        `toml:"data,omitempty"`
	Textures []textureRecord `toml:"textures,omitempty"`
}

func encodeImage(img *metadata.ImageData) *imageRecord {
	if img == nil {
		return nil
	}
	return &imageRecord{
		Width:  img.Width,
		Height: img.Height,
		Format: img.Format,
		Pixels: base64.StdEncoding.EncodeToString(img.Pixels),
	}
}

func decodeImage(rec *imageRecord) (*metadata.ImageData, error) {
	if rec == nil {
		return nil, nil
	}
	pixels, err := base64.StdEncoding.DecodeString(rec.Pixels)
	if err != nil {
		return nil, err
	}
	return &metadata.ImageData{
		Width:  rec.Width,
		Height: rec.Height,
		Format: rec.Format,
		Pixels: pixels,
	}, nil
}

/**
 * @brief Writes the CPU side of d as TOML: binding, kind, data blocks, sampler
 * settings and image data. GPU objects are never written.
 */
func MarshalDescriptor(d Descriptor) ([]byte, error) {
	rec := descriptorRecord{DescriptorBinding: d.Binding()}

	switch v := d.(type) {
	case *DescriptorBuffer:
		rec.Type = recordBuffer
		for _, data := range v.DataList {
			rec.Data = append(rec.Data, base64.StdEncoding.EncodeToString(data.Bytes()))
		}
	case *Texture:
		rec.Type = recordTexture
		rec.Textures = []textureRecord{{Sampler: v.Sampler, Image: encodeImage(v.Image)}}
	case *TextureArray:
		rec.Type = recordTextureArray
		for _, e := range v.Entries {
			rec.Textures = append(rec.Textures, textureRecord{Sampler: e.Sampler, Image: encodeImage(e.Image)})
		}
	default:
		err := fmt.Errorf("marshal %T: %w", d, core.ErrUnknownDescriptorKind)
		core.LogError(err.Error())
		return nil, err
	}

	return toml.Marshal(rec)
}

// UnmarshalDescriptor rebuilds an uncompiled descriptor from MarshalDescriptor output.
func UnmarshalDescriptor(b []byte) (Descriptor, error) {
	var rec descriptorRecord
	if err := toml.Unmarshal(b, &rec); err != nil {
		err = fmt.Errorf("failed to parse descriptor: %w", err)
		core.LogError(err.Error())
		return nil, err
	}

	switch rec.Type {
	case recordBuffer:
		db := &DescriptorBuffer{DescriptorBinding: rec.DescriptorBinding}
		for i, encoded := range rec.Data {
			values, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				return nil, fmt.Errorf("data block %d: %w", i, err)
			}
			db.DataList = append(db.DataList, metadata.NewData(values))
		}
		return db, nil
	case recordTexture, recordTextureArray:
		entries := make([]TextureEntry, 0, len(rec.Textures))
		for i, tr := range rec.Textures {
			img, err := decodeImage(tr.Image)
			if err != nil {
				return nil, fmt.Errorf("texture %d: %w", i, err)
			}
			entries = append(entries, TextureEntry{Image: img, Sampler: tr.Sampler})
		}
		if rec.Type == recordTextureArray {
			return &TextureArray{DescriptorBinding: rec.DescriptorBinding, Entries: entries}, nil
		}
		if len(entries) != 1 {
			return nil, fmt.Errorf("texture record holds %d entries, want 1", len(entries))
		}
		return &Texture{DescriptorBinding: rec.DescriptorBinding, TextureEntry: entries[0]}, nil
	}

	err := fmt.Errorf("descriptor record type %q: %w", rec.Type, core.ErrUnknownDescriptorKind)
	core.LogError(err.Error())
	return nil, err
}
