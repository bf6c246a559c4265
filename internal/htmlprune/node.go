package htmlprune

import (
	"fmt"

	"golang.org/x/net/html"
)

// nodeAddr derives a stable identity string for an *html.Node using its
// pointer address, since html.Node carries no id field of its own.
func nodeAddr(n *html.Node) string {
	return fmt.Sprintf("%p", n)
}
