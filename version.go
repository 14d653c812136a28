package main

// Version is stamped by the release build via -ldflags.
var Version = "1.0.0"
