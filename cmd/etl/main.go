// Command etl builds the songplays warehouse from the raw song-data and
// log-data trees.
//
//	etl run --config pipeline.yaml
//	etl validate --config pipeline.yaml
//	etl tables --kind postgres
//	etl verify --output s3://bucket/warehouse
package main

import (
	"os"
	_ "time/tzdata" // transform.time_zone must resolve on hosts without a zoneinfo database
)

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
