// Package all wires every built-in store scheme into the datasource
// registry. Import it for side effects:
//
//	import _ "songwarehouse/internal/datasource/all"
package all

import (
	_ "songwarehouse/internal/datasource/file"
	_ "songwarehouse/internal/datasource/gcs"
	_ "songwarehouse/internal/datasource/memory"
	_ "songwarehouse/internal/datasource/s3"
)
