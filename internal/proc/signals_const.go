package proc

// NumSignals is the highest valid signal number; the signal table is
// sized NumSignals+1 so a signal number indexes it directly.
const NumSignals = 31

// SIGSEGV is the signal synthesized by the page-fault handler for an
// illegal memory access (spec.md §4.2).
const SIGSEGV = 11
