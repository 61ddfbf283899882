// Package ragchat provides a Go client for the ragchat
// retrieval-augmented chat service.
//
//	client, _ := ragchat.New("http://localhost:8080",
//	    ragchat.WithAPIKey("secret"),
//	)
//
//	answer, _ := client.Chat(ctx, ragchat.ChatRequest{
//	    Message:       "What is the refund policy?",
//	    Language:      "en",
//	    RagContextKey: "docs",
//	})
//
//	results, _ := client.SemanticSearch(ctx, ragchat.SearchRequest{
//	    Query:   "refund policy",
//	    Context: "docs",
//	})
package ragchat
