/*
Package testing provides a conformance suite for the reclaiming containers of
package lockfree. Every container runs the same scenarios: basic put and take,
reclamation of removed nodes and concurrent producers and consumers that must
never observe a recycled node.

	func TestStack(t *testing.T) {
		lftesting.RunContainerTests(t, "Stack", func() lockfree.Container[int] {
			return lockfree.NewStack[int]()
		})
	}
*/
package testing
