package policy

import (
	"fmt"

	"github.com/omnipack/omnipack/pkg/packaging"
)

func ExamplePolicy_Set() {
	p := Default()

	if err := p.Set("include_test", true); err != nil {
		fmt.Println("set failed:", err)
		return
	}
	v, _ := p.Get("include_test")
	fmt.Println("include_test:", v)

	// Rejected values leave the prior value in place.
	err := p.Set("extension_module_filter", "everything")
	fmt.Println("rejected:", packaging.IsValidation(err))
	fmt.Println("filter:", p.ExtensionModuleFilter)

	// Output:
	// include_test: true
	// rejected: true
	// filter: all
}

func ExampleDeriveContext() {
	p := Default()
	p.BytecodeOptimizeLevelTwo = true

	res := sourceModule("os.path", packaging.ProvenanceDistributionSource)
	ctx, err := DeriveContext(p, res)
	if err != nil {
		fmt.Println("derive failed:", err)
		return
	}

	fmt.Println("include:", ctx.Include)
	fmt.Println("location:", ctx.Location)
	fmt.Println("levels:", ctx.OptimizeLevels())

	// Output:
	// include: true
	// location: in-memory
	// levels: [0 2]
}

func ExampleApplyToResource() {
	p := Default()

	chain := NewCallbackChain()
	_ = chain.Register("prefer-filesystem", func(p *Policy, snap *packaging.ResourceSnapshot) (*packaging.CollectionContext, error) {
		snap.Context.Location = packaging.LocationFilesystemRelative("lib")
		return nil, nil
	})

	res := sourceModule("ssl.compat", packaging.ProvenanceDistributionSource)
	if err := ApplyToResource(p, chain, res); err != nil {
		fmt.Println("apply failed:", err)
		return
	}

	fmt.Println(res.CollectionContext().Location)

	// Output:
	// filesystem-relative:lib
}
