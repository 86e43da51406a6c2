//go:build sqlite_vec && cgo

package vector

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Register the sqlite-vec extension so the vec0 virtual table and
	// vec_distance_cosine are available. vec.Auto() registers it as an
	// auto-loadable extension for cgo sqlite builds.
	vec.Auto()
}
