//go:build ignore

// generate_testdata.go creates standard stats manifests for manual testing
// and benchmarking.
// Usage: go run scripts/generate_testdata.go
//
// Creates:
//	tests/testdata/manifests/small.json   (~100 modules)
//	tests/testdata/manifests/medium.json  (~1000 modules)
//	tests/testdata/manifests/large.json   (~5000 modules)
package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/bundlescope/pkg/loader"
)

type datasetSpec struct {
	name    string
	modules int
}

var datasets = []datasetSpec{
	{"small", 100},
	{"medium", 1000},
	{"large", 5000},
}

func main() {
	outputDir := "tests/testdata/manifests"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, ds := range datasets {
		fmt.Printf("Generating %s manifest (~%d modules)...\n", ds.name, ds.modules)

		rng := rand.New(rand.NewSource(int64(ds.modules))) // reproducible per size
		manifest := loader.Manifest{Version: 1}
		remaining := ds.modules
		for i := 0; remaining > 0; i++ {
			budget := remaining
			if budget > ds.modules/3+1 {
				budget = ds.modules/3 + 1
			}
			root, used := genModule(rng, fmt.Sprintf("chunk-%d", i), budget, 0)
			manifest.Modules = append(manifest.Modules, root)
			remaining -= used
		}

		data, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode %s: %v\n", ds.name, err)
			os.Exit(1)
		}

		path := filepath.Join(outputDir, ds.name+".json")
		if err := os.WriteFile(path, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("  wrote %s\n", path)
	}
}

var dirNames = []string{"src", "components", "lib", "utils", "vendor", "assets", "views", "api"}
var fileNames = []string{"index.js", "main.js", "helpers.js", "client.js", "styles.css", "types.js"}

// genModule builds a random subtree of at most budget modules (including
// the root) and reports how many it used.
func genModule(rng *rand.Rand, name string, budget, depth int) (loader.Module, int) {
	mod := loader.Module{Name: name}
	used := 1

	if budget <= 1 || depth >= 5 || (depth > 0 && rng.Intn(3) == 0) {
		mod.Size = int64(rng.Intn(100_000) + 200)
		return mod, used
	}

	kids := rng.Intn(6) + 2
	for i := 0; i < kids && used < budget; i++ {
		var childName string
		if depth < 2 {
			childName = dirNames[rng.Intn(len(dirNames))] + fmt.Sprintf("-%d", i)
		} else {
			childName = fileNames[rng.Intn(len(fileNames))]
		}
		child, n := genModule(rng, childName, budget-used, depth+1)
		mod.Children = append(mod.Children, child)
		used += n
	}
	return mod, used
}
