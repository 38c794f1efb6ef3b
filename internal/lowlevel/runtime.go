package lowlevel

import (
	"gclower/internal/types"
)

// Runtime support classes the lowered code calls into
const (
	ShadowStackClass       = "runtime.ShadowStack"
	MutatorClass           = "runtime.Mutator"
	GCClass                = "runtime.GC"
	ExceptionHandlingClass = "runtime.ExceptionHandling"
	AllocatorClass         = "runtime.Allocator"
)

var (
	objectType    = types.ObjectOf(types.ObjectClass)
	throwableType = types.ObjectOf(types.ThrowableClass)
	classType     = types.ObjectOf(types.ClassClass)
)

// Runtime primitives
var (
	AllocStackMethod            = types.NewMethodReference(ShadowStackClass, "allocStack", types.IntType, types.VoidType)
	ReleaseStackMethod          = types.NewMethodReference(ShadowStackClass, "releaseStack", types.IntType, types.VoidType)
	RegisterCallSiteMethod      = types.NewMethodReference(ShadowStackClass, "registerCallSite", types.IntType, types.VoidType)
	GetExceptionHandlerIDMethod = types.NewMethodReference(ShadowStackClass, "getExceptionHandlerId", types.IntType)

	WriteBarrierMethod = types.NewMethodReference(GCClass, "writeBarrier", objectType, types.VoidType)

	ThrowExceptionMethod       = types.NewMethodReference(ExceptionHandlingClass, "throwException", throwableType, types.VoidType)
	ThrowNullPointerMethod     = types.NewMethodReference(ExceptionHandlingClass, "throwNullPointerException", types.VoidType)
	ThrowIndexOutOfBoundMethod = types.NewMethodReference(ExceptionHandlingClass, "throwArrayIndexOutOfBoundsException", types.VoidType)
	CatchExceptionMethod       = types.NewMethodReference(ExceptionHandlingClass, "catchException", throwableType)

	IsInitializedMethod = types.NewMethodReference(AllocatorClass, "isInitialized", classType, types.BooleanType)
)

// RootRuntime selects which runtime class receives GC root registrations
type RootRuntime string

const (
	RootsShadowStack RootRuntime = "shadowstack"
	RootsMutator     RootRuntime = "mutator"
)

// RegisterGCRootMethod returns registerGCRoot(int, Object) on the selected runtime
func (r RootRuntime) RegisterGCRootMethod() types.MethodReference {
	return types.NewMethodReference(r.className(), "registerGCRoot", types.IntType, objectType, types.VoidType)
}

// RemoveGCRootMethod returns removeGCRoot(int) on the selected runtime
func (r RootRuntime) RemoveGCRootMethod() types.MethodReference {
	return types.NewMethodReference(r.className(), "removeGCRoot", types.IntType, types.VoidType)
}

func (r RootRuntime) className() string {
	if r == RootsMutator {
		return MutatorClass
	}
	return ShadowStackClass
}

// Valid reports whether r names a known root runtime
func (r RootRuntime) Valid() bool {
	return r == RootsShadowStack || r == RootsMutator || r == ""
}

// RuntimeClasses returns the class metadata of the runtime support library.
// Every runtime method is static and unmanaged except the throw routines,
// which allocate and unwind and are therefore call sites themselves.
func RuntimeClasses() *types.ClassRegistry {
	registry := types.NewClassRegistry()
	add := func(className string, methods ...types.MethodReference) {
		class := types.NewClassReader(className, types.ObjectClass, types.TraitUnmanaged|types.TraitStaticInit)
		for _, m := range methods {
			traits := types.MethodStatic | types.MethodUnmanaged
			if m.ClassName == ExceptionHandlingClass && m.Name != CatchExceptionMethod.Name {
				traits = types.MethodStatic | types.MethodManaged
			}
			class.AddMethod(&types.MethodReader{Reference: m, Traits: traits})
		}
		registry.AddClass(class)
	}

	add(ShadowStackClass,
		AllocStackMethod, ReleaseStackMethod, RegisterCallSiteMethod, GetExceptionHandlerIDMethod,
		RootsShadowStack.RegisterGCRootMethod(), RootsShadowStack.RemoveGCRootMethod())
	add(MutatorClass, RootsMutator.RegisterGCRootMethod(), RootsMutator.RemoveGCRootMethod())
	add(GCClass, WriteBarrierMethod)
	add(ExceptionHandlingClass,
		ThrowExceptionMethod, ThrowNullPointerMethod, ThrowIndexOutOfBoundMethod, CatchExceptionMethod)
	add(AllocatorClass, IsInitializedMethod)
	return registry
}

// WithRuntime layers the runtime support classes under a unit's classes
func WithRuntime(classes types.ClassSource) types.ClassSource {
	return types.CompositeSource{classes, RuntimeClasses()}
}
