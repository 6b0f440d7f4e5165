// Package op implements operator descriptors, the operator registry and the
// lifecycle engine that drives one operator instance through its phases:
//
//	Unbound --Prepare--> Ready --Arm--> Armed --Execute--> Executing --Teardown--> TornDown
//
// Prepare validates bindings and parameters, infers output shapes and stages
// outputs and workspaces. Nothing reaches the symbol table or device memory
// until the operator kind's own Prepare has returned without error, so a
// failed prepare needs no cleanup. Kinds without an arm hook and without
// deferred outputs skip straight to Armed.
//
// Execute only computes. Teardown releases everything prepare and arm
// acquired and restores the symbol table entries the instance touched.
package op
