/*
Package dsl provides a fluent builder for constructing callflow pathways in Go.

It is an alternative to writing pathways.json by hand, useful for tests and for
pathways generated at startup.

Example usage:

	b := dsl.New()

	b.Add("start").
		Instruction("Greet the caller and ask how you can help.").
		Go("collect")

	b.Add("collect").
		Instruction("Collect the caller's account number.").
		Go("close")

	b.Add("close").
		Instruction("Thank the caller and end the call.").
		Terminal()

	// The loader can be passed to callflow.WithPathwaySource.
	loader, err := b.Build()
*/
package dsl
