//go:build windows

package coverage

// LineSeparator terminates every line of an aggregate failure message.
const LineSeparator = "\r\n"
