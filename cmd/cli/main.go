package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "guest":
		handleGuest(args)
	case "barrier":
		handleBarrier(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: gatekeeper auth <login|logout|who>")
		return
	}

	switch args[0] {
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", args[0])
	}
}

func handleGuest(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: gatekeeper guest <list|issue|status|cancel>")
		return
	}

	switch args[0] {
	case "list":
		listGuests(args[1:])
	case "issue":
		issueGuest(args[1:])
	case "status":
		guestStatus(args[1:])
	case "cancel":
		cancelGuest(args[1:])
	default:
		fmt.Printf("unknown guest command: %s\n", args[0])
	}
}

func handleBarrier(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: gatekeeper barrier <open|history|scan>")
		return
	}

	switch args[0] {
	case "open":
		openBarrier(args[1:])
	case "history":
		barrierHistory(args[1:])
	case "scan":
		scanCode(args[1:])
	default:
		fmt.Printf("unknown barrier command: %s\n", args[0])
	}
}

// Auth commands
func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	phone := fs.String("phone", "", "resident phone")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *phone == "" || *password == "" {
		fmt.Println("Error: phone and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"phone": *phone, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/auth/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if token, ok := result["token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *phone)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logoutUser() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	token := loadToken()
	if token == "" {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("✓ Logged in (token: %s...)\n", token[:20])
}

// Guest commands
func listGuests(args []string) {
	_ = args
	req, _ := http.NewRequest("GET", getAPIURL()+"/guests", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result struct {
		Guests []map[string]interface{} `json:"guests"`
	}
	json.NewDecoder(resp.Body).Decode(&result)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tGUEST\tCODE\tSTATUS\tEXPIRES")
	for _, g := range result.Guests {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n",
			g["id"], g["guestName"], g["accessCode"], g["status"], g["expiresAt"])
	}
	w.Flush()
}

func issueGuest(args []string) {
	fs := flag.NewFlagSet("issue", flag.ExitOnError)
	name := fs.String("name", "", "guest name")
	phone := fs.String("phone", "", "guest phone (optional)")
	vehicle := fs.String("vehicle", "", "vehicle plate (optional)")
	duration := fs.Int("duration", 120, "validity in minutes")

	fs.Parse(args)

	if *name == "" {
		fmt.Println("Error: name is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{
		"guestName":       *name,
		"durationMinutes": *duration,
	}
	if *phone != "" {
		payload["guestPhone"] = *phone
	}
	if *vehicle != "" {
		payload["vehicleNumber"] = *vehicle
	}

	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", getAPIURL()+"/barrier/guest-access", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ Access issued for %v\n", result["guestName"])
		fmt.Printf("  code:    %v\n", result["accessCode"])
		fmt.Printf("  expires: %v\n", result["expiresAt"])
	} else {
		fmt.Printf("✗ Issue failed: %v\n", result)
	}
}

func guestStatus(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: gatekeeper guest status <credential-id>")
		return
	}

	req, _ := http.NewRequest("GET", getAPIURL()+"/guest-access/"+args[0], nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "guest:\t%v\n", result["guestName"])
		fmt.Fprintf(w, "status:\t%v\n", result["status"])
		fmt.Fprintf(w, "code:\t%v\n", result["accessCode"])
		fmt.Fprintf(w, "expires:\t%v\n", result["expiresAt"])
		if v, ok := result["enteredAt"]; ok {
			fmt.Fprintf(w, "entered:\t%v\n", v)
		}
		if v, ok := result["exitedAt"]; ok {
			fmt.Fprintf(w, "exited:\t%v\n", v)
		}
		w.Flush()
	} else {
		fmt.Printf("✗ Lookup failed: %v\n", result)
	}
}

func cancelGuest(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: gatekeeper guest cancel <credential-id>")
		return
	}

	req, _ := http.NewRequest("DELETE", getAPIURL()+"/guest-access/"+args[0], nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		fmt.Println("✓ Access cancelled")
	} else {
		fmt.Printf("✗ Cancel failed: %v\n", result)
	}
}

// Barrier commands
func openBarrier(args []string) {
	fs := flag.NewFlagSet("open", flag.ExitOnError)
	barrierID := fs.String("barrier", "", "barrier ID")

	fs.Parse(args)

	if *barrierID == "" {
		fmt.Println("Error: barrier is required")
		fs.PrintDefaults()
		return
	}

	data, _ := json.Marshal(map[string]string{"barrierId": *barrierID})
	req, _ := http.NewRequest("POST", getAPIURL()+"/barrier/open", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		fmt.Println("✓ Barrier opened")
	} else {
		fmt.Printf("✗ Open failed: %v\n", result)
	}
}

func barrierHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 50, "number of entries")

	fs.Parse(args)

	req, _ := http.NewRequest("GET", fmt.Sprintf("%s/barrier/history?limit=%d", getAPIURL(), *limit), nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result struct {
		History []map[string]interface{} `json:"history"`
	}
	json.NewDecoder(resp.Body).Decode(&result)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tBARRIER\tWHO\tVEHICLE")
	for _, e := range result.History {
		who := e["credentialId"]
		if who == nil || who == "" {
			who = e["userId"]
		}
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n",
			e["createdAt"], e["action"], e["barrierId"], who, e["vehicleNumber"])
	}
	w.Flush()
}

// scanCode plays a barrier adapter: posts one scan against the entry or
// exit endpoint using the barrier's shared key.
func scanCode(args []string) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	code := fs.String("code", "", "access code")
	barrierID := fs.String("barrier", "", "barrier ID")
	key := fs.String("key", "", "barrier API key")
	action := fs.String("action", "entry", "entry or exit")
	vehicle := fs.String("vehicle", "", "vehicle plate (optional)")

	fs.Parse(args)

	if *code == "" || *barrierID == "" || *key == "" {
		fmt.Println("Error: code, barrier and key are required")
		fs.PrintDefaults()
		return
	}
	if *action != "entry" && *action != "exit" {
		fmt.Println("Error: action must be entry or exit")
		return
	}

	payload := map[string]string{
		"accessCode": *code,
		"barrierId":  *barrierID,
	}
	if *vehicle != "" {
		payload["vehicleNumber"] = *vehicle
	}

	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", getAPIURL()+"/barrier/"+*action, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Barrier-Key", *key)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	switch resp.StatusCode {
	case 200:
		fmt.Printf("✓ Granted (%v)\n", result["guestName"])
	case 403:
		fmt.Printf("✗ Denied: %v\n", result["reason"])
	default:
		fmt.Printf("✗ Scan failed (%d): %v\n", resp.StatusCode, result)
	}
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("GATEKEEPER_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api/v1"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.gatekeeper/token"
}

func saveToken(token string) error {
	home, _ := os.UserHomeDir()
	os.MkdirAll(home+"/.gatekeeper", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`Gatekeeper CLI

Usage:
  gatekeeper <command> [options]

Commands:
  auth     Resident authentication (login, logout, who)
  guest    Guest access passes (list, issue, status, cancel)
  barrier  Barrier operations (open, history, scan)
  help     Show this help message

Environment Variables:
  GATEKEEPER_API    API endpoint (default: http://localhost:8080/api/v1)

Examples:
  gatekeeper auth login -phone +70000000002 -password demo1234
  gatekeeper guest issue -name "Ivan Petrov" -vehicle A123BC -duration 180
  gatekeeper guest list
  gatekeeper barrier scan -code 482913 -barrier <id> -key <key> -action entry
`)
}
