// Package dom defines the narrow view of a host page that the agents
// need. Two backends implement it: internal/rodom drives a live Chrome
// tab over CDP, dom/memdom works on parsed HTML.
//
// Element handles are non-owning. They stay valid until the host page
// replaces the subtree they point into. Lookups that find nothing return
// a nil Element and a nil error; errors are reserved for backend failures.
package dom

// Element is a handle on a DOM element.
type Element interface {
	// Tag returns the lower-case tag name.
	Tag() (string, error)
	// Attr returns the attribute value and whether it is present.
	Attr(name string) (string, bool, error)
	// Text returns the element's textContent.
	Text() (string, error)
	// Parent returns the parent element, or nil at the top of the tree.
	Parent() (Element, error)
	// NextSibling returns the next sibling node when it is an element.
	// A text or comment sibling yields nil.
	NextSibling() (Element, error)
	// Query returns the first descendant matching the CSS selector.
	Query(selector string) (Element, error)
	// QueryAll returns every descendant matching the CSS selector in
	// document order.
	QueryAll(selector string) ([]Element, error)
	// TextNodes returns the text nodes under the element in document order.
	TextNodes() ([]TextNode, error)
	// Same reports whether both handles point at the same node.
	Same(other Element) (bool, error)

	// Click dispatches a synthetic click, like HTMLElement.click().
	Click() error
	// Clone returns a detached deep copy. Listeners are not copied.
	Clone() (Element, error)
	SetAttr(name, value string) error
	SetStyle(property, value string) error
	// ReplaceText rewrites the first descendant text node containing
	// substr to text. It reports whether a node was rewritten.
	ReplaceText(substr, text string) (bool, error)
	// InsertAfter inserts the element as the next sibling of ref.
	InsertAfter(ref Element) error
	// OnClick installs a capturing click listener that cancels the
	// event's default action and propagation, then calls fn.
	OnClick(fn func()) error
}

// TextNode is a text node together with its parent element.
type TextNode struct {
	Text   string
	Parent Element
}

// Document is the page-level view.
type Document interface {
	// Body returns the document body.
	Body() (Element, error)
	Query(selector string) (Element, error)
	QueryAll(selector string) ([]Element, error)

	// Observe subscribes to childList mutations in root's subtree. fn is
	// called once per batch that added any node and receives the added
	// element nodes in order; a batch of text nodes only yields none.
	Observe(root Element, fn func(added []Element)) error
	// OnContextMenu reports the target element of every right-click.
	OnContextMenu(fn func(target Element)) error
	// OnFragmentChange reports location fragment changes, without '#'.
	OnFragmentChange(fn func(fragment string)) error
	// SetFragment sets the location fragment, triggering the host's
	// in-page routing.
	SetFragment(fragment string) error
}

// Prompter shows blocking dialogs to the operator.
type Prompter interface {
	Confirm(message string) (bool, error)
	Alert(message string) error
}
