package common

// Resource is a GPU object whose lifetime is owned by exactly one holder.
// Concrete wgpu handles (*wgpu.Buffer, *wgpu.TextureView, *wgpu.RenderBundle, ...) satisfy it directly.
type Resource interface {
	Release()
}

// ReleaseAll releases every non-nil resource in order.
//
// Parameters:
//   - resources: the resources to release; nil entries are skipped
func ReleaseAll(resources ...Resource) {
	for _, r := range resources {
		if r != nil {
			r.Release()
		}
	}
}
