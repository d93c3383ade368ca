// pkg/xdg/types.go

package xdg

const (
	DirPermStandard  = 0755
	FilePermStandard = 0644
)
