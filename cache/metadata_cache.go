package cache

// MetadataCache wraps Cache with convenience setters that auto-tag entity
// and property metadata entries, stored with infinite TTL regardless of
// the base cache's configuration (spec §4.5).
type MetadataCache struct {
	base *Cache
}

// NewMetadataCache wraps base as a MetadataCache.
func NewMetadataCache(base *Cache) *MetadataCache {
	return &MetadataCache{base: base}
}

// SetEntityMetadata stores className's descriptor, tagged with
// "entity_metadata" and className.
func (m *MetadataCache) SetEntityMetadata(className string, value any) {
	key := "entity:" + className
	m.base.Set(key, value, 0)
	m.base.Tag(key, "entity_metadata", className)
}

// GetEntityMetadata retrieves a previously stored entity descriptor.
func (m *MetadataCache) GetEntityMetadata(className string) (any, bool) {
	return m.base.Get("entity:" + className)
}

// SetPropertyMetadata stores one property's metadata for className,
// tagged with "property_metadata" and className.
func (m *MetadataCache) SetPropertyMetadata(className, property string, value any) {
	key := "property:" + className + ":" + property
	m.base.Set(key, value, 0)
	m.base.Tag(key, "property_metadata", className)
}

// GetPropertyMetadata retrieves a previously stored property descriptor.
func (m *MetadataCache) GetPropertyMetadata(className, property string) (any, bool) {
	return m.base.Get("property:" + className + ":" + property)
}

// InvalidateEntity drops every cached entity and property entry for
// className.
func (m *MetadataCache) InvalidateEntity(className string) int {
	return m.base.InvalidateTag(className)
}

// Statistics exposes the wrapped base cache's statistics.
func (m *MetadataCache) Statistics() Statistics {
	return m.base.Statistics()
}
