/*
Package soyc is a compiler frontend for Google's Closure Templates.

See the official documentation for features, syntax, data types, commands,
functions, etc:

https://developers.google.com/closure/templates/

# Usage example

Typically in a web application you have a directory containing views for all
of your pages.  For example:

	app/views/
	app/views/account/
	app/views/feed/
	...

This code snippet will parse a file of globals and all soy templates within
app/views, run the compiler checks (data references, types, HTML tag
balancing), apply contextual autoescaping, and provide back the compiled
template registry.  (Error checking is skipped.)

	registry, _ := soyc.NewBundle().
	    WatchFiles(mode == "dev").            // watch soy files, recompile on changes (in dev)
	    AddGlobalsFile("views/globals.txt").  // parse a file of globals
	    AddTemplateDir("views").              // load *.soy in all sub-directories
	    Compile()

The returned registry holds every template's checked and rewritten parse
tree, ready for a rendering or code-generation backend.

# Advanced Usage

The soyc package provides a friendly interface to its sub-packages.  Advanced
usages like automated template rewriting will be better served by using
e.g. soyc/parse directly.
*/
package soyc
