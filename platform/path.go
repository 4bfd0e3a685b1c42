package platform

// Path is an opaque file-system path.
type Path struct {
	name string
}

func NewPath(name string) Path {
	return Path{name: name}
}

func (p Path) String() string { return p.name }

func (p Path) IsZero() bool { return p.name == "" }

func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.name), nil
}

func (p *Path) UnmarshalText(text []byte) error {
	p.name = string(text)
	return nil
}
