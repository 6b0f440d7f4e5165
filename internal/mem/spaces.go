package mem

import "fmt"

// Spaces bundles the allocators of a runtime: one for host memory and one
// accelerator device.
type Spaces struct {
	Host  Allocator
	Accel Device
}

// NewSpaces creates host memory plus the given accelerator.
// A nil device selects an unlimited SimDevice.
func NewSpaces(accel Device) *Spaces {
	if accel == nil {
		accel = NewSimDevice(0)
	}
	return &Spaces{
		Host:  NewHostAllocator(0),
		Accel: accel,
	}
}

// For returns the allocator serving space.
func (s *Spaces) For(space Space) (Allocator, error) {
	switch space {
	case Host:
		return s.Host, nil
	case Accelerator:
		if s.Accel == nil {
			return nil, fmt.Errorf("mem: no accelerator configured")
		}
		return s.Accel, nil
	default:
		return nil, fmt.Errorf("mem: cannot allocate in %s space", space)
	}
}

// Copy moves size bytes from src to dst, dispatching on the pair of spaces
// (host to host, host to device, device to host, device to device).
func (s *Spaces) Copy(dst, src *Buffer, size int) error {
	if size > dst.Size() || size > src.Size() {
		return fmt.Errorf("mem: copy of %d bytes exceeds buffer size (dst %d, src %d)", size, dst.Size(), src.Size())
	}

	switch {
	case src.Space() == Host && dst.Space() == Host:
		to, err := dst.Bytes()
		if err != nil {
			return err
		}
		from, err := src.Bytes()
		if err != nil {
			return err
		}
		copy(to[:size], from[:size])
		return nil
	case src.Space() == Host && dst.Space() == Accelerator:
		from, err := src.Bytes()
		if err != nil {
			return err
		}
		return s.Accel.Upload(dst, from[:size])
	case src.Space() == Accelerator && dst.Space() == Host:
		to, err := dst.Bytes()
		if err != nil {
			return err
		}
		return s.Accel.Download(to[:size], src)
	case src.Space() == Accelerator && dst.Space() == Accelerator:
		return s.Accel.CopyDevice(dst, src, size)
	default:
		return fmt.Errorf("mem: unsupported copy %s -> %s", src.Space(), dst.Space())
	}
}
