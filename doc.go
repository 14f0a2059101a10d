/*
Exprc compiles arithmetic expression trees to three backends: a stack machine bytecode, a Go callable assembled from that bytecode, and a scalar SQL query evaluated on a database.

An expression is built from parameters, numeric constants and the four binary operators.
A tree pairs an expression with the ordered list of parameter names it is called with.
Each backend gives the same result for the same arguments, apart from the way the backend treats a division by zero.

# Basics

The expression (a + b) * c is written:

	tree := exprc.MustTree([]string{"a", "b", "c"},
		exprc.Mul(exprc.Add(exprc.Param("a"), exprc.Param("b")), exprc.Param("c")))

Its pre-order form is given by Prefix:

	Multiply(Add(a, b), c)

CompileBytecode produces the post-order program for a stack machine:

	0 PUSHPARAM 0 ; a
	1 PUSHPARAM 1 ; b
	2 OPERATE + ; Add
	3 PUSHPARAM 2 ; c
	4 OPERATE * ; Multiply

Compile assembles the program into a [Func] that takes the arguments in the order the parameters were declared.
Two strategies are available.
The [Interpreter] runs the instructions on a value stack every time the function is called.
The [ClosureCompiler] turns the instructions into a tree of closures once, so calls do not decode instructions.

CompileSQL generates a scalar SELECT statement:

	SELECT ((@a + @b) * @c);

A [Statement] is evaluated on a [DB] with a map binding every parameter name to a value.
The statement is prepared on the database the first time it is evaluated and the driver prepared statement is reused afterwards.
Driver prepared statements are closed when the Statement or DB is garbage collected.

# Dialects

The dialect of a Statement selects the placeholder syntax:

 1. SQLite
    - Named placeholders, @a, bound by name.

 2. Dqlite
    - Numbered placeholders, ?1, one per distinct parameter, bound by position.

 3. Postgres
    - Numbered placeholders, $1::double precision, one per distinct parameter.

 4. MySQL
    - Positional placeholders, ?, bound once per occurrence.

Constants are always written as floating point literals so that no database performs an integer division.

# Division by zero

The bytecode backends follow IEEE-754 and return an infinity or NaN.
SQLite returns NULL, which DB.Eval reports as an [ExecutionError] wrapping [ErrNullResult].
*/
package exprc
