package plan

// The following documentation describes how a join request turns into one
// executor run.
//
// 1) Metadata
//    Both input paths are stat'ed through the configured afero.Fs. The byte
//    size is the only thing known about an input before it is read, and it
//    is all the selector and the hash join's build side choice look at. A
//    missing or unreadable input fails here, before any output is written.
//
// 2) Select
//    If the caller forced an algorithm it is taken as is. Otherwise the
//    selector applies its policy in order:
//
//      total <= NestedLoopLimit and total <= MemoryBudget  -> nested
//      smaller side <= MemoryBudget / 2                    -> hash
//      anything else                                       -> sort-merge
//
//    The nested loop holds both inputs and is quadratic, so it is kept for
//    tiny inputs. The hash join holds only the smaller side but needs room
//    for the map on top of the rows. The sort-merge join holds one chunk.
//
// 3) Run
//    Both files are opened, exactly one executor is built and it writes
//    into a buffered row.Writer over the output. There is no fallback: if
//    the chosen executor fails, the error is reported and the writer is not
//    flushed. Only rows that already overflowed the buffer can reach the
//    output before the failure.
//
// Dump and Explain print the outcome of 1) and 2) without running 3).
