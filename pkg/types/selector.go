package types

import "fmt"

// Selector identifies at most one editable polygon. The concrete variants are
// SimpleSelector, KeyedSelector and GroupedSelector; no other type satisfies it.
type Selector interface {
	Category() Category
	String() string
	selector()
}

// SimpleSelector addresses a motion mask by position.
type SimpleSelector struct {
	Index int
}

// KeyedSelector addresses a zone by name.
type KeyedSelector struct {
	Name string
}

// GroupedSelector addresses one polygon in a named object mask list.
type GroupedSelector struct {
	Name string
	Sub  int
}

func (SimpleSelector) Category() Category  { return Simple }
func (KeyedSelector) Category() Category   { return Keyed }
func (GroupedSelector) Category() Category { return GroupedKeyed }

func (s SimpleSelector) String() string  { return fmt.Sprintf("motion[%d]", s.Index) }
func (s KeyedSelector) String() string   { return fmt.Sprintf("zones[%s]", s.Name) }
func (s GroupedSelector) String() string { return fmt.Sprintf("objects[%s][%d]", s.Name, s.Sub) }

func (SimpleSelector) selector()  {}
func (KeyedSelector) selector()   {}
func (GroupedSelector) selector() {}
