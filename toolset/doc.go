// Package toolset holds the tool registry: an ordered, immutable set of tool
// descriptors paired with their handlers. The registry is built once at
// process start; name uniqueness is enforced at registration time.
package toolset
