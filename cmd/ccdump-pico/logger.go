//go:build rp2040

package main

// consoleLogger prints session logs with the builtin print functions, which
// keeps fmt out of the firmware image.
type consoleLogger struct{}

func (consoleLogger) Debug(msg string, kv ...interface{}) { logLine("DBG", msg, kv) }
func (consoleLogger) Info(msg string, kv ...interface{})  { logLine("INF", msg, kv) }
func (consoleLogger) Warn(msg string, kv ...interface{})  { logLine("WRN", msg, kv) }
func (consoleLogger) Error(msg string, kv ...interface{}) { logLine("ERR", msg, kv) }

func logLine(level, msg string, kv []interface{}) {
	print("[ccdump] ", level, " ", msg)
	for i := 0; i+1 < len(kv); i += 2 {
		k, _ := kv[i].(string)
		print(" ", k, "=")
		switch v := kv[i+1].(type) {
		case string:
			print(v)
		case int:
			print(v)
		case int64:
			print(v)
		case uint16:
			print(v)
		case uint8:
			print(v)
		case bool:
			print(v)
		case error:
			print(v.Error())
		default:
			print("?")
		}
	}
	println()
}
