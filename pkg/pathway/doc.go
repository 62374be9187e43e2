/*
Package pathway holds the immutable conversation graph a call walks through.

A graph is loaded once at startup from a JSON or YAML document shaped as an
ordered list of nodes:

	[
	  {"name": "start", "block": {"instruction": "Greet the caller."}, "destinations": [{"stepName": "end"}]},
	  {"name": "end", "block": {"instruction": "Say goodbye."}, "destinations": []}
	]

Only the first destination of a node is ever followed, and a destination naming a
node that does not exist means "stay put". The graph is not validated beyond
requiring a name on every entry.
*/
package pathway
