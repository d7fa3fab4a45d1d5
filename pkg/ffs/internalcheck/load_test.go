package internalcheck

import (
	"testing"

	"golang.org/x/tools/go/packages"
)

// protectedPackages are the packages that touch secrets or their encodings.
var protectedPackages = []string{
	"github.com/hsiuhsiu/ffs-go/pkg/ffs",
	"github.com/hsiuhsiu/ffs-go/pkg/ffs/wire",
	"github.com/hsiuhsiu/ffs-go/internal/modarith",
}

func loadProtected(t *testing.T, mode packages.LoadMode) []*packages.Package {
	t.Helper()
	cfg := &packages.Config{Mode: mode | packages.NeedName | packages.NeedFiles | packages.NeedSyntax}
	pkgs, err := packages.Load(cfg, protectedPackages...)
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if len(pkgs) != len(protectedPackages) {
		t.Fatalf("loaded %d packages, want %d", len(pkgs), len(protectedPackages))
	}
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			t.Fatalf("package %s: %v", pkg.PkgPath, e)
		}
	}
	return pkgs
}
