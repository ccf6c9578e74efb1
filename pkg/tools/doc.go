/*
Package tools holds the tool registry the model may call into.

Tools are identified by a closed set of kinds. A name chosen by the model is
resolved to a Kind once, and anything that does not resolve to a registered
kind yields the "bad tool name, retry" result instead of failing the loop.
*/
package tools
