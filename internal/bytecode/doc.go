/*
Package bytecode compiles expression trees for a small stack machine.

Generate walks a tree in post-order and emits three kinds of instruction:
PushParam, PushConst and Operate. Operate pops the right operand first, then
the left one, and pushes the result.

Assemble turns a Program into a Func. The program is validated first: every
instruction must find its operands on the stack and the program must end with
exactly one value on it. Two strategies are available. Interpret runs the
instructions against a value stack on every call. Compile replays the stack
once at assembly time, turning every instruction into a closure, and calls
the resulting closure tree. Both give identical results.
*/
package bytecode
