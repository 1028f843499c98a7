package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// BufferData is the slice of a device buffer holding one data block.
type BufferData struct {
	Buffer *Buffer
	Offset vk.DeviceSize
	Range  vk.DeviceSize
}

/**
 * @brief A uniform or storage buffer descriptor. Every data block gets its own
 * aligned range inside a host visible buffer, and one descriptor element.
 * Blocks added after a compile get a buffer of their own on the next compile;
 * the buffers of earlier blocks are kept since frames in flight may read them.
 */
type DescriptorBuffer struct {
	DescriptorBinding

	DataList []*metadata.Data

	device         Device
	buffers        []*Buffer
	bufferDataList []BufferData
	bufferInfos    []vk.DescriptorBufferInfo
	// ModifiedCount of each block at its last upload.
	uploaded []uint64
}

func NewUniformBuffer(binding uint32, data ...*metadata.Data) *DescriptorBuffer {
	return &DescriptorBuffer{
		DescriptorBinding: DescriptorBinding{Binding: binding, Kind: DescriptorKindUniformBuffer},
		DataList:          data,
	}
}

func NewStorageBuffer(binding uint32, data ...*metadata.Data) *DescriptorBuffer {
	return &DescriptorBuffer{
		DescriptorBinding: DescriptorBinding{Binding: binding, Kind: DescriptorKindStorageBuffer},
		DataList:          data,
	}
}

func (db *DescriptorBuffer) descriptor() {}

func (db *DescriptorBuffer) Binding() DescriptorBinding {
	return db.DescriptorBinding
}

func (db *DescriptorBuffer) IsCompiled() bool {
	return len(db.bufferInfos) >= len(db.bufferDataList) && len(db.bufferInfos) >= len(db.DataList)
}

func (db *DescriptorBuffer) NumDescriptors() uint32 {
	return uint32(max(len(db.DataList), len(db.bufferDataList)))
}

// BufferDataList returns the ranges produced by the last compile.
func (db *DescriptorBuffer) BufferDataList() []BufferData {
	return append([]BufferData(nil), db.bufferDataList...)
}

func alignUp(offset, alignment vk.DeviceSize) vk.DeviceSize {
	if alignment <= 1 {
		return offset
	}
	return (offset + alignment - 1) / alignment * alignment
}

func (db *DescriptorBuffer) Compile(ctx *Context) error {
	if db.IsCompiled() {
		return nil
	}
	if db.Kind != DescriptorKindUniformBuffer && db.Kind != DescriptorKindStorageBuffer {
		err := fmt.Errorf("descriptor buffer at binding %d has kind %s: %w", db.Binding().Binding, db.Kind, core.ErrUnknownDescriptorKind)
		core.LogError(err.Error())
		return err
	}

	// only the blocks added since the last compile
	first := len(db.bufferDataList)
	added := db.DataList[first:]
	for i, data := range added {
		if data.Size() == 0 {
			err := fmt.Errorf("data block %d of binding %d: %w", first+i, db.Binding().Binding, core.ErrEmptyDataBlock)
			core.LogError(err.Error())
			return err
		}
	}

	device := ctx.Device
	usage := db.Kind.bufferUsage()
	alignment := device.MinOffsetAlignment(usage)

	ranges := make([]BufferData, len(added))
	var total vk.DeviceSize
	for i, data := range added {
		total = alignUp(total, alignment)
		ranges[i] = BufferData{Offset: total, Range: vk.DeviceSize(data.Size())}
		total += ranges[i].Range
	}

	buffer, err := device.CreateBuffer(total, usage)
	if err != nil {
		return err
	}

	uploaded := make([]uint64, len(added))
	infos := make([]vk.DescriptorBufferInfo, len(ranges))
	for i, data := range added {
		ranges[i].Buffer = buffer
		uploaded[i] = data.ModifiedCount()
		if err := device.CopyToBuffer(buffer, ranges[i].Offset, data.Bytes()); err != nil {
			device.DestroyBuffer(buffer)
			return err
		}
		infos[i] = vk.DescriptorBufferInfo{
			Buffer: buffer.Handle,
			Offset: ranges[i].Offset,
			Range:  ranges[i].Range,
		}
	}

	db.device = device
	db.buffers = append(db.buffers, buffer)
	db.bufferDataList = append(db.bufferDataList, ranges...)
	db.bufferInfos = append(db.bufferInfos, infos...)
	db.uploaded = append(db.uploaded, uploaded...)
	return nil
}

/**
 * @brief Re-uploads the blocks modified since their last upload into the
 * compiled buffer. The GPU must not be reading the buffer meanwhile, which
 * holds once the fence of the last submission using it was waited on.
 */
func (db *DescriptorBuffer) CopyToDevice() error {
	if len(db.buffers) == 0 {
		err := fmt.Errorf("copy to device of binding %d: %w", db.Binding().Binding, core.ErrNotCompiled)
		core.LogError(err.Error())
		return err
	}
	for i, data := range db.DataList {
		if i >= len(db.bufferDataList) {
			break
		}
		modified := data.ModifiedCount()
		if modified == db.uploaded[i] {
			continue
		}
		bytes := data.Bytes()
		if vk.DeviceSize(len(bytes)) > db.bufferDataList[i].Range {
			core.LogWarn("data block %d of binding %d grew past its compiled range, truncating", i, db.Binding().Binding)
			bytes = bytes[:db.bufferDataList[i].Range]
		}
		if err := db.device.CopyToBuffer(db.bufferDataList[i].Buffer, db.bufferDataList[i].Offset, bytes); err != nil {
			return err
		}
		db.uploaded[i] = modified
	}
	return nil
}

func (db *DescriptorBuffer) AssignTo(wds *vk.WriteDescriptorSet, set vk.DescriptorSet) bool {
	if !db.IsCompiled() || len(db.bufferInfos) == 0 {
		return false
	}
	db.DescriptorBinding.assignTo(wds, set, uint32(len(db.bufferInfos)))
	wds.PBufferInfo = append([]vk.DescriptorBufferInfo(nil), db.bufferInfos...)
	return true
}

// Release destroys every buffer. No submission still in flight may bind them.
func (db *DescriptorBuffer) Release() {
	for _, buffer := range db.buffers {
		db.device.DestroyBuffer(buffer)
	}
	db.buffers = nil
	db.bufferDataList = nil
	db.bufferInfos = nil
	db.uploaded = nil
}
