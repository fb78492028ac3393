package index

// PostingList is the ascending list of document positions containing a term.
type PostingList []int

// TermEntry pairs a term with its postings and inverse document frequency.
type TermEntry struct {
	Term     string
	Postings PostingList
	IDF      float64
}
