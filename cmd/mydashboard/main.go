package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	root, a := newRootCmd()
	err := root.Execute()
	if cerr := a.close(context.Background()); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "mydashboard: %v\n", err)
		os.Exit(1)
	}
}
