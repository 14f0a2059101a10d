/*
Package sqlgen renders expression trees as SQL.

The tree body becomes a single scalar statement, "SELECT <expr>;", where every
parameter is replaced by a placeholder and every constant by a REAL literal.
Binary nodes are written in infix form and always parenthesised:

	a + b * 2   =>   SELECT (@a + (@b * 2.0));

The statement keeps the names of the parameters it references so that Bind
can turn a name to value mapping into query arguments. Bind reports every
missing name before anything is sent to a database. This package does not
talk to the database itself.
*/
package sqlgen
