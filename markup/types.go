// Package markup holds the small part of the markup object model the runtime
// data needs: node streams, a handful of known types and properties, a
// generic object graph and a reader that replays one object out of an encoded
// node stream.
package markup

import (
	"strings"

	"vsmrt/stream"
)

// Registry numbers of known types. The four collection kinds keep the numbers
// their legacy runtime data type indexes were taken from.
var (
	TypeStyle                      = stream.TypeRef{Index: 578, Name: "Style"}
	TypeSetter                     = stream.TypeRef{Index: 579, Name: "Setter"}
	TypeStoryboard                 = stream.TypeRef{Index: 580, Name: "Storyboard"}
	TypeSetterBaseCollection       = stream.TypeRef{Index: 581, Name: "SetterBaseCollection"}
	TypeResourceDictionary         = stream.TypeRef{Index: 591, Name: "ResourceDictionary"}
	TypeVisualState                = stream.TypeRef{Index: 622, Name: "VisualState"}
	TypeVisualStateGroup           = stream.TypeRef{Index: 623, Name: "VisualStateGroup"}
	TypeVisualStateGroupCollection = stream.TypeRef{Index: 624, Name: "VisualStateGroupCollection"}
	TypeVisualTransition           = stream.TypeRef{Index: 625, Name: "VisualTransition"}
	TypeDoubleAnimation            = stream.TypeRef{Index: 640, Name: "DoubleAnimation"}
	TypeColorAnimation             = stream.TypeRef{Index: 641, Name: "ColorAnimation"}
	TypeObjectAnimation            = stream.TypeRef{Index: 642, Name: "ObjectAnimationUsingKeyFrames"}
	TypeStateTriggerCollection     = stream.TypeRef{Index: 786, Name: "StateTriggerCollection"}
	TypeStateTriggerBase           = stream.TypeRef{Index: 787, Name: "StateTriggerBase"}
	TypeAdaptiveTrigger            = stream.TypeRef{Index: 788, Name: "AdaptiveTrigger"}
	TypeStateTrigger               = stream.TypeRef{Index: 789, Name: "StateTrigger"}
	TypeDeferredElement            = stream.TypeRef{Index: 795, Name: "DeferredElement"}
	TypeStaticResource             = stream.TypeRef{Index: 801, Name: "StaticResource"}
	TypeThemeResource              = stream.TypeRef{Index: 802, Name: "ThemeResource"}
)

var knownTypes = func() map[string]stream.TypeRef {
	m := make(map[string]stream.TypeRef)
	for _, t := range []stream.TypeRef{
		TypeStyle, TypeSetter, TypeStoryboard, TypeSetterBaseCollection,
		TypeResourceDictionary, TypeVisualState, TypeVisualStateGroup,
		TypeVisualStateGroupCollection, TypeVisualTransition, TypeDoubleAnimation,
		TypeColorAnimation, TypeObjectAnimation, TypeStateTriggerCollection,
		TypeStateTriggerBase, TypeAdaptiveTrigger, TypeStateTrigger,
		TypeDeferredElement, TypeStaticResource, TypeThemeResource,
	} {
		m[t.Name] = t
	}
	return m
}()

// TypeByName returns the known type or an unregistered reference carrying
// only the name.
func TypeByName(name string) stream.TypeRef {
	if t, ok := knownTypes[name]; ok {
		return t
	}
	return stream.TypeRef{Name: name}
}

// IsKnownType reports whether t is in the registry.
func IsKnownType(t stream.TypeRef) bool {
	k, ok := knownTypes[t.Name]
	return ok && k.Index == t.Index
}

// Prop builds a property reference, owner is resolved through TypeByName.
func Prop(owner, name string) stream.PropertyRef {
	return stream.PropertyRef{Owner: TypeByName(owner), Name: name}
}

var directiveOwner = stream.TypeRef{Name: "x"}

// Directive properties.
var (
	DirectiveName = stream.PropertyRef{Owner: directiveOwner, Name: "Name"}
	DirectiveKey  = stream.PropertyRef{Owner: directiveOwner, Name: "Key"}
	DirectiveLoad = stream.PropertyRef{Owner: directiveOwner, Name: "Load"}
	DirectiveUid  = stream.PropertyRef{Owner: directiveOwner, Name: "Uid"}
)

// Properties the runtime data writers look at.
var (
	PropCollectionItems      = Prop("VisualStateGroupCollection", "Items")
	PropGroupStates          = Prop("VisualStateGroup", "States")
	PropGroupTransitions     = Prop("VisualStateGroup", "Transitions")
	PropStateStoryboard      = Prop("VisualState", "Storyboard")
	PropStateSetters         = Prop("VisualState", "Setters")
	PropStateTriggers        = Prop("VisualState", "StateTriggers")
	PropTransitionFrom       = Prop("VisualTransition", "From")
	PropTransitionTo         = Prop("VisualTransition", "To")
	PropTransitionDuration   = Prop("VisualTransition", "GeneratedDuration")
	PropTransitionStoryboard = Prop("VisualTransition", "Storyboard")
	PropStoryboardChildren   = Prop("Storyboard", "Children")
	PropTargetName           = Prop("Storyboard", "TargetName")
	PropTargetProperty       = Prop("Storyboard", "TargetProperty")
	PropSetterTarget         = Prop("Setter", "Target")
	PropSetterProperty       = Prop("Setter", "Property")
	PropSetterValue          = Prop("Setter", "Value")
	PropTriggerCollection    = Prop("StateTriggerCollection", "Items")
	PropMinWindowWidth       = Prop("AdaptiveTrigger", "MinWindowWidth")
	PropMinWindowHeight      = Prop("AdaptiveTrigger", "MinWindowHeight")
	PropStateTriggerIsActive = Prop("StateTrigger", "IsActive")
	PropResourceKey          = Prop("StaticResource", "ResourceKey")
	PropThemeResourceKey     = Prop("ThemeResource", "ResourceKey")
	PropStyleTargetType      = Prop("Style", "TargetType")
	PropStyleBasedOn         = Prop("Style", "BasedOn")
	PropStyleSetters         = Prop("Style", "Setters")
	PropDictionaryItems      = Prop("ResourceDictionary", "Items")
	PropThemeDictionaries    = Prop("ResourceDictionary", "ThemeDictionaries")
	PropDeferredContent      = Prop("DeferredElement", "Content")
)

var contentProperties = map[string]stream.PropertyRef{
	TypeVisualStateGroupCollection.Name: PropCollectionItems,
	TypeVisualStateGroup.Name:           PropGroupStates,
	TypeVisualState.Name:                PropStateStoryboard,
	TypeVisualTransition.Name:           PropTransitionStoryboard,
	TypeStoryboard.Name:                 PropStoryboardChildren,
	TypeStateTriggerCollection.Name:     PropTriggerCollection,
	TypeStyle.Name:                      PropStyleSetters,
	TypeResourceDictionary.Name:         PropDictionaryItems,
	TypeDeferredElement.Name:            PropDeferredContent,
	TypeStaticResource.Name:             PropResourceKey,
	TypeThemeResource.Name:              PropThemeResourceKey,
}

// ContentProperty returns the member child elements of t land in.
func ContentProperty(t stream.TypeRef) stream.PropertyRef {
	if p, ok := contentProperties[t.Name]; ok {
		return p
	}
	return stream.PropertyRef{Owner: t, Name: "Content"}
}

// MemberFromAttribute resolves an attribute or property element name as it
// appears on an element of type owner. Dotted names are attached properties.
func MemberFromAttribute(owner stream.TypeRef, name string) stream.PropertyRef {
	if o, p, ok := strings.Cut(name, "."); ok {
		return Prop(o, p)
	}
	if t, ok := knownTypes[owner.Name]; ok {
		owner = t
	}
	return stream.PropertyRef{Owner: owner, Name: name}
}

// IsStateTrigger reports whether t is usable inside StateTriggers.
func IsStateTrigger(t stream.TypeRef) bool {
	return t == TypeAdaptiveTrigger || t == TypeStateTrigger || t == TypeStateTriggerBase || !IsKnownType(t)
}
