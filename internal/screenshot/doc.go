// Package screenshot persists captured frames as still images.
package screenshot
