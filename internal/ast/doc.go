/*
Package ast defines the arithmetic expression tree shared by every backend.

An expression is built from three node kinds: Parameter, Constant and Binary.
A Tree pairs an expression body with its ordered parameter list and is only
obtained through NewTree, which checks that every parameter reference is
declared and records its position.

Backends traverse a tree with Visit, which folds the tree bottom-up with one
handler per node kind, or with Walk, which streams the nodes in pre-order,
in-order or post-order. Both fail with ErrUnsupportedNodeKind when they meet
a node they do not know.
*/
package ast
