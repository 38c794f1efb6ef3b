package lowlevel

import (
	"sync"

	"gclower/internal/types"
)

// memo is a concurrency-safe boolean cache. Values are computed outside the
// lock; two goroutines racing on one key compute the same answer.
type memo[K comparable] struct {
	mu     sync.RWMutex
	values map[K]bool
}

func newMemo[K comparable]() *memo[K] {
	return &memo[K]{values: make(map[K]bool)}
}

func (m *memo[K]) get(key K, compute func() bool) bool {
	m.mu.RLock()
	v, ok := m.values[key]
	m.mu.RUnlock()
	if ok {
		return v
	}

	v = compute()
	m.mu.Lock()
	m.values[key] = v
	m.mu.Unlock()
	return v
}

// Characteristics answers classification queries about classes and methods.
// Unknown classes are treated as managed ordinary objects.
type Characteristics struct {
	source  types.ClassSource
	methods *ManagedMethodRepository

	structure  *memo[string]
	function   *memo[string]
	staticInit *memo[string]
	clinit     *memo[string]
	unmanaged  *memo[string]
}

// NewCharacteristics creates a classifier over the given class source
func NewCharacteristics(source types.ClassSource) *Characteristics {
	return &Characteristics{
		source:     source,
		methods:    NewManagedMethodRepository(source),
		structure:  newMemo[string](),
		function:   newMemo[string](),
		staticInit: newMemo[string](),
		clinit:     newMemo[string](),
		unmanaged:  newMemo[string](),
	}
}

// Source returns the class source the classifier reads
func (c *Characteristics) Source() types.ClassSource {
	return c.source
}

// walk visits name and its ancestors until visit returns true or the chain ends
func (c *Characteristics) walk(name string, visit func(name string, class *types.ClassReader) bool) bool {
	seen := make(map[string]bool)
	for name != "" && !seen[name] {
		seen[name] = true
		class := c.source.Get(name)
		if visit(name, class) {
			return true
		}
		if class == nil {
			return false
		}
		name = class.Parent
	}
	return false
}

// IsStructure reports whether instances of the class are raw memory structures
func (c *Characteristics) IsStructure(className string) bool {
	return c.structure.get(className, func() bool {
		return c.walk(className, func(name string, class *types.ClassReader) bool {
			return name == types.StructureClass || (class != nil && class.Traits.Has(types.TraitStructure))
		})
	})
}

// IsFunction reports whether the class is a native function pointer type
func (c *Characteristics) IsFunction(className string) bool {
	return c.function.get(className, func() bool {
		return c.walk(className, func(name string, class *types.ClassReader) bool {
			return name == types.FunctionClass || (class != nil && class.Traits.Has(types.TraitFunction))
		})
	})
}

// IsStaticInit reports whether the class is initialized eagerly at startup
func (c *Characteristics) IsStaticInit(className string) bool {
	return c.staticInit.get(className, func() bool {
		class := c.source.Get(className)
		return class != nil && class.Traits.Has(types.TraitStaticInit)
	})
}

// HasClassInitializer reports whether the class declares a static initializer.
// Unknown classes are assumed to have one.
func (c *Characteristics) HasClassInitializer(className string) bool {
	return c.clinit.get(className, func() bool {
		class := c.source.Get(className)
		return class == nil || class.HasClassInitializer()
	})
}

// IsUnmanagedClass reports whether every method of the class runs without GC cooperation
func (c *Characteristics) IsUnmanagedClass(className string) bool {
	return c.unmanaged.get(className, func() bool {
		class := c.source.Get(className)
		return class != nil && class.Traits.Has(types.TraitUnmanaged)
	})
}

// IsManaged reports whether a call to the method may trigger a collection
func (c *Characteristics) IsManaged(method types.MethodReference) bool {
	return c.methods.IsManaged(method)
}

// IsManagedMethod reports whether the body of the method cooperates with the GC
func (c *Characteristics) IsManagedMethod(method *types.MethodReader) bool {
	if method.Traits.Has(types.MethodManaged) {
		return true
	}
	if method.Traits.Has(types.MethodUnmanaged) {
		return false
	}
	return c.IsManaged(method.Reference)
}

// IsSubclass reports whether sub equals or extends super
func (c *Characteristics) IsSubclass(sub, super string) bool {
	return c.walk(sub, func(name string, _ *types.ClassReader) bool {
		return name == super
	})
}

// IsNativeType reports whether values of t are raw pointers the GC must not see
func (c *Characteristics) IsNativeType(t types.ValueType) bool {
	obj, ok := t.(*types.Object)
	if !ok {
		return false
	}
	return obj.ClassName == types.AddressClass || c.IsStructure(obj.ClassName) || c.IsFunction(obj.ClassName)
}
