package persist

import "strconv"

// FormatEntry renders one log line. ts is ignored unless timed. A missing
// trailing newline is added so every entry occupies exactly one line.
func FormatEntry(timed bool, ts int64, message []byte) []byte {
	out := make([]byte, 0, len(message)+22)
	if timed {
		out = strconv.AppendInt(out, ts, 10)
		out = append(out, ' ')
	}
	out = append(out, message...)
	if len(message) == 0 || message[len(message)-1] != '\n' {
		out = append(out, '\n')
	}
	return out
}

// ParseEntry splits a timed log line into its timestamp and message. The
// timestamp is a run of decimal digits terminated by one space. Any other
// line yields timestamp 0 and the whole line, so it reads as expired.
func ParseEntry(line []byte) (ts int64, message []byte) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i == len(line) || line[i] != ' ' {
		return 0, line
	}
	v, err := strconv.ParseInt(string(line[:i]), 10, 64)
	if err != nil {
		return 0, line
	}
	return v, line[i+1:]
}

// expired reports whether an entry stamped ts is outside retention at now.
// Zero and future stamps count as expired, so the subtraction cannot wrap.
func expired(now, ts, retention int64) bool {
	if ts <= 0 || ts > now {
		return true
	}
	return now-ts > retention
}
