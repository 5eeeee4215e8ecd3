package manifest_test

import (
	"encoding/json"
	"fmt"

	"component-sdk/manifest"
)

func ExampleTableDefinition_Manifest() {
	td, err := manifest.NewTableDefinition("orders.csv",
		manifest.WithColumns("id", "total"),
		manifest.WithPrimaryKey("id"),
		manifest.WithIncremental(true),
	)
	if err != nil {
		panic(err)
	}

	doc := td.Manifest(manifest.ManifestOptions{Stage: manifest.StageOut, LegacyManifest: true})
	out, _ := json.MarshalIndent(doc, "", "  ")
	fmt.Println(string(out))
	// Output:
	// {
	//   "columns": [
	//     "id",
	//     "total"
	//   ],
	//   "delimiter": ",",
	//   "enclosure": "\"",
	//   "incremental": true,
	//   "primary_key": [
	//     "id"
	//   ],
	//   "write_always": false
	// }
}
