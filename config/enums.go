package config

// Selects what to do with a declaration conversion engine cannot process.
// ENUM(fail, keep, skip)
type OnError int
