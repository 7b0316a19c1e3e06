package ast

// binaryLike is implemented by the node kinds that can participate in
// the "Rebuilding during add" operator-precedence rotation: BinaryOp,
// BitOp, and Assign (all carry a left/right child pair and a Precedence).
// Dot/Subscript bind by dedicated juxtaposition rather than by this
// rotation and are deliberately excluded.
type binaryLike interface {
	Node
	GetLeft() Node
	GetRight() Node
	SetLeft(Node)
	SetRight(Node)
}

func (n *BinaryOp) GetLeft() Node     { return n.Left }
func (n *BinaryOp) GetRight() Node    { return n.Right }
func (n *BinaryOp) SetLeft(c Node)    { n.Left = c }
func (n *BinaryOp) SetRight(c Node)   { n.Right = c }

func (n *BitOp) GetLeft() Node   { return n.Left }
func (n *BitOp) GetRight() Node  { return n.Right }
func (n *BitOp) SetLeft(c Node)  { n.Left = c }
func (n *BitOp) SetRight(c Node) { n.Right = c }

func (n *Assign) GetLeft() Node   { return n.LHS }
func (n *Assign) GetRight() Node  { return n.RHS }
func (n *Assign) SetLeft(c Node)  { n.LHS = c }
func (n *Assign) SetRight(c Node) { n.RHS = c }

// Insert implements the "Rebuilding during add" rotation: root is the
// right-most in-progress tree built so far (may be a plain operand, or
// nil if incoming is the very first operator in the stream); incoming is
// a freshly-seen operator node with its Left not yet set. It returns the
// new root of the stream.
//
// Grounded on original_source/include/teascript/ASTNode_Block.hpp's
// AddChild rotation (a precedence-climbing Pratt parser fused into
// incremental tree construction), reimplemented here as a pure function
// over the Node tree instead of mutating a parser's internal stack.
func Insert(root Node, incoming binaryLike) Node {
	top, ok := root.(binaryLike)
	if !ok || top == nil {
		incoming.SetLeft(root)
		return incoming
	}
	if incoming.Precedence() >= top.Precedence() {
		incoming.SetLeft(top)
		return incoming
	}
	insertIntoRightSpine(top, incoming)
	return top
}

// insertIntoRightSpine walks down top's right-hand spine, absorbing
// incoming at the first node whose precedence incoming does not beat
// (i.e. that node binds at least as tightly as incoming), detaching that node's
// existing right child to become incoming's left child.
func insertIntoRightSpine(top binaryLike, incoming binaryLike) {
	right := top.GetRight()
	rb, ok := right.(binaryLike)
	if !ok || rb == nil || incoming.Precedence() >= rb.Precedence() {
		incoming.SetLeft(right)
		top.SetRight(incoming)
		return
	}
	insertIntoRightSpine(rb, incoming)
}

// Close performs the "go-backwards-and-close" pass: given the
// current stream root, attaches the next complete value to the first
// still-open Right slot found by walking down the right spine. It is a
// no-op (returns false) if every binaryLike node on the spine already has
// its Right filled.
func Close(root Node, value Node) (Node, bool) {
	cur, ok := root.(binaryLike)
	if !ok || cur == nil {
		return root, false
	}
	for {
		right := cur.GetRight()
		if right == nil {
			cur.SetRight(value)
			return root, true
		}
		next, ok := right.(binaryLike)
		if !ok {
			return root, false
		}
		cur = next
	}
}
