package core

import (
	"arquitectura/testutil"
	"testing"
)

func TestCoreDoesNotImportEdges(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.EdgeImportForbidden, "core must not depend on HTTP, CLI or config")
}
