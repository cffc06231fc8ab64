package main

import (
	"os"
	"os/exec"

	"github.com/goyek/goyek/v2"
)

func run(a *goyek.A, name string, args ...string) {
	cmd := exec.CommandContext(a.Context(), name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		a.Error(err)
	}
}

var vet = goyek.Define(goyek.Task{
	Name:  "vet",
	Usage: "Run go vet on all packages",
	Action: func(a *goyek.A) {
		run(a, "go", "vet", "./...")
	},
})

var test = goyek.Define(goyek.Task{
	Name:  "test",
	Usage: "Run unit tests with the race detector (integration tests skipped)",
	Action: func(a *goyek.A) {
		run(a, "go", "test", "-race", "-short", "./...")
	},
})

var build = goyek.Define(goyek.Task{
	Name:  "build",
	Usage: "Build the imagecrawl binary",
	Action: func(a *goyek.A) {
		run(a, "go", "build", "-o", "bin/imagecrawl", "./cmd/imagecrawl")
	},
})

var _ = goyek.Define(goyek.Task{
	Name:  "all",
	Usage: "Run vet, test and build",
	Deps:  goyek.Deps{vet, test, build},
})

func main() {
	goyek.Main(os.Args[1:])
}
