package lowlevel

import (
	"fmt"
	"sort"
	"sync"

	"gclower/internal/annotations"
)

// Annotation types used to persist call-site tables
const (
	CallSiteAnnotation         = "lowlevel.CallSite"
	CallSiteLocationAnnotation = "lowlevel.CallSiteLocation"
	ExceptionHandlerAnnotation = "lowlevel.ExceptionHandler"
)

// CallSiteLocation is one source position of a call site. Inlined code may
// give a call site several.
type CallSiteLocation struct {
	FileName   string `yaml:"file"`
	ClassName  string `yaml:"class"`
	MethodName string `yaml:"method"`
	LineNumber int    `yaml:"line"`
}

// ExceptionHandlerDescriptor maps the handler id the runtime reports to the
// exception class the handler catches. An empty ClassName catches everything.
type ExceptionHandlerDescriptor struct {
	ID        int    `yaml:"id"`
	ClassName string `yaml:"class,omitempty"`
}

// IsCatchAll reports whether the handler has no exception class filter
func (h ExceptionHandlerDescriptor) IsCatchAll() bool {
	return h.ClassName == ""
}

// CallSiteDescriptor describes one instrumented call site for the runtime's
// exception dispatcher. Handlers are listed innermost first.
type CallSiteDescriptor struct {
	ID        int                          `yaml:"id"`
	Locations []CallSiteLocation           `yaml:"locations"`
	Handlers  []ExceptionHandlerDescriptor `yaml:"handlers"`
}

// CallSiteRegistry hands out call-site and handler ids for one compilation
// unit and collects the resulting descriptors. Ids are unique across the
// unit. Methods may be lowered concurrently.
type CallSiteRegistry struct {
	mu     sync.Mutex
	nextID int
	sites  []*CallSiteDescriptor
}

// NewCallSiteRegistry creates an empty registry
func NewCallSiteRegistry() *CallSiteRegistry {
	return &CallSiteRegistry{}
}

// NewID returns a fresh id
func (r *CallSiteRegistry) NewID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	return id
}

// Add records a descriptor
func (r *CallSiteRegistry) Add(d *CallSiteDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sites = append(r.sites, d)
}

// CallSites returns every recorded descriptor ordered by id
func (r *CallSiteRegistry) CallSites() []*CallSiteDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := append([]*CallSiteDescriptor(nil), r.sites...)
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// SaveCallSites appends one annotation per descriptor to the container
func SaveCallSites(sites []*CallSiteDescriptor, container *annotations.Container) {
	for _, site := range sites {
		locations := make([]annotations.Value, 0, len(site.Locations))
		for _, loc := range site.Locations {
			locations = append(locations, annotations.AnnotationValue(
				annotations.New(CallSiteLocationAnnotation).
					Set("fileName", annotations.StringValue(loc.FileName)).
					Set("className", annotations.StringValue(loc.ClassName)).
					Set("methodName", annotations.StringValue(loc.MethodName)).
					Set("lineNumber", annotations.IntValue(int64(loc.LineNumber)))))
		}

		handlers := make([]annotations.Value, 0, len(site.Handlers))
		for _, h := range site.Handlers {
			handler := annotations.New(ExceptionHandlerAnnotation).
				Set("id", annotations.IntValue(int64(h.ID)))
			if !h.IsCatchAll() {
				handler.Set("className", annotations.StringValue(h.ClassName))
			}
			handlers = append(handlers, annotations.AnnotationValue(handler))
		}

		container.Add(annotations.New(CallSiteAnnotation).
			Set("id", annotations.IntValue(int64(site.ID))).
			Set("locations", annotations.ListValue(locations...)).
			Set("handlers", annotations.ListValue(handlers...)))
	}
}

// LoadCallSites reads back the descriptors SaveCallSites stored
func LoadCallSites(container *annotations.Container) ([]*CallSiteDescriptor, error) {
	var sites []*CallSiteDescriptor
	for _, a := range container.All(CallSiteAnnotation) {
		id, err := a.Int("id")
		if err != nil {
			return nil, err
		}
		site := &CallSiteDescriptor{ID: int(id)}

		for i, v := range a.List("locations") {
			loc, err := loadLocation(v)
			if err != nil {
				return nil, fmt.Errorf("call site %d, location %d: %w", id, i, err)
			}
			site.Locations = append(site.Locations, loc)
		}
		for i, v := range a.List("handlers") {
			h, err := loadHandler(v)
			if err != nil {
				return nil, fmt.Errorf("call site %d, handler %d: %w", id, i, err)
			}
			site.Handlers = append(site.Handlers, h)
		}
		sites = append(sites, site)
	}
	return sites, nil
}

func loadLocation(v annotations.Value) (CallSiteLocation, error) {
	var loc CallSiteLocation
	a, err := v.AsAnnotation()
	if err != nil {
		return loc, err
	}
	line, err := a.Int("lineNumber")
	if err != nil {
		return loc, err
	}
	loc.LineNumber = int(line)

	for name, field := range map[string]*string{
		"fileName":   &loc.FileName,
		"className":  &loc.ClassName,
		"methodName": &loc.MethodName,
	} {
		s, _, err := a.Text(name)
		if err != nil {
			return loc, err
		}
		*field = s
	}
	return loc, nil
}

func loadHandler(v annotations.Value) (ExceptionHandlerDescriptor, error) {
	var h ExceptionHandlerDescriptor
	a, err := v.AsAnnotation()
	if err != nil {
		return h, err
	}
	id, err := a.Int("id")
	if err != nil {
		return h, err
	}
	h.ID = int(id)
	className, _, err := a.Text("className")
	if err != nil {
		return h, err
	}
	h.ClassName = className
	return h, nil
}
