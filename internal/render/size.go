package render

// Size is a named viewport/clip preset for rendering.
type Size struct {
	Name   string
	Width  int
	Height int
}

var sizePresets = map[string]Size{
	"square":    {Name: "square", Width: 1080, Height: 1080},
	"portrait":  {Name: "portrait", Width: 1080, Height: 1350},
	"story":     {Name: "story", Width: 1080, Height: 1920},
	"landscape": {Name: "landscape", Width: 1200, Height: 630},
}

const defaultSizeName = "square"

// resolveSize looks up a size preset by name, falling back to the default
// ("square") when name is empty, and returning false for an unknown name.
func resolveSize(name string) (Size, bool) {
	if name == "" {
		name = defaultSizeName
	}
	s, ok := sizePresets[name]
	return s, ok
}

// SizePresets returns every named size preset, for GET /api/sizes.
func SizePresets() map[string]Size {
	out := make(map[string]Size, len(sizePresets))
	for k, v := range sizePresets {
		out[k] = v
	}
	return out
}
