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
	case "business":
		handleBusiness(args)
	case "member":
		handleMember(args)
	case "invite":
		handleInvite(args)
	case "admin":
		handleAdmin(args)
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
		fmt.Println("Usage: staffdesk auth <register|login|logout|who>")
		return
	}

	switch args[0] {
	case "register":
		registerUser(args[1:])
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

func handleBusiness(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: staffdesk business <list|create|get|delete>")
		return
	}

	switch args[0] {
	case "list":
		listBusinesses()
	case "create":
		createBusiness(args[1:])
	case "get":
		getBusiness(args[1:])
	case "delete":
		deleteBusiness(args[1:])
	default:
		fmt.Printf("unknown business command: %s\n", args[0])
	}
}

func handleMember(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: staffdesk member <list|remove>")
		return
	}

	switch args[0] {
	case "list":
		listMembers(args[1:])
	case "remove":
		removeMember(args[1:])
	default:
		fmt.Printf("unknown member command: %s\n", args[0])
	}
}

func handleInvite(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: staffdesk invite <send|accept|decline>")
		return
	}

	switch args[0] {
	case "send":
		sendInvite(args[1:])
	case "accept":
		acceptInvite(args[1:])
	case "decline":
		declineInvite(args[1:])
	default:
		fmt.Printf("unknown invite command: %s\n", args[0])
	}
}

func handleAdmin(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: staffdesk admin <users|role|impersonate>")
		return
	}

	switch args[0] {
	case "users":
		listUsers()
	case "role":
		changeRole(args[1:])
	case "impersonate":
		impersonate(args[1:])
	default:
		fmt.Printf("unknown admin command: %s\n", args[0])
	}
}

// Auth commands
func registerUser(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	name := fs.String("name", "", "display name")
	password := fs.String("password", "", "password")
	token := fs.String("invitation", "", "invitation token (optional)")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"email":    *email,
		"name":     *name,
		"password": *password,
	}
	if *token != "" {
		payload["invitationToken"] = *token
	}

	result, status, err := post("/auth/register", payload)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 201 {
		fmt.Printf("✓ User registered: %s\n", *email)
		if link, ok := result["invitationLink"].(string); ok && link != "skipped" {
			fmt.Printf("  invitation link: %s\n", link)
		}
		if tok, ok := result["token"].(string); ok {
			saveToken(tok)
		}
	} else {
		fmt.Printf("✗ Registration failed: %v\n", result)
	}
}

func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	result, status, err := post("/auth/login", map[string]string{"email": *email, "password": *password})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 200 {
		if tok, ok := result["token"].(string); ok {
			saveToken(tok)
			fmt.Printf("✓ Logged in as: %s\n", *email)
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
	result, status, err := get("/auth/me")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status != 200 {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("✓ Logged in as %v (%v)\n", result["email"], result["globalRole"])
}

// Business commands
func listBusinesses() {
	req, _ := http.NewRequest("GET", getAPIURL()+"/businesses", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var businesses []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&businesses)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tNAME\tCREATED")
	for _, b := range businesses {
		fmt.Fprintf(w, "%v\t%v\t%v\n", b["slug"], b["name"], b["createdAt"])
	}
	w.Flush()
}

func createBusiness(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	slug := fs.String("slug", "", "business slug")
	name := fs.String("name", "", "business name")
	fs.Parse(args)

	if *slug == "" || *name == "" {
		fmt.Println("Error: slug and name are required")
		return
	}
	result, status, err := post("/businesses", map[string]string{"slug": *slug, "name": *name})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 201 {
		fmt.Printf("✓ Business created: %s\n", *slug)
	} else {
		fmt.Printf("✗ Create failed: %v\n", result)
	}
}

func getBusiness(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: staffdesk business get <slug>")
		return
	}
	result, status, err := get("/businesses/" + args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status != 200 {
		fmt.Printf("✗ %v\n", result)
		return
	}
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

func deleteBusiness(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: staffdesk business delete <slug>")
		return
	}
	status, err := del("/businesses/" + args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 204 {
		fmt.Printf("✓ Business deleted: %s\n", args[0])
	} else {
		fmt.Printf("✗ Delete failed (status %d)\n", status)
	}
}

// Member commands
func listMembers(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: staffdesk member list <slug>")
		return
	}
	req, _ := http.NewRequest("GET", getAPIURL()+"/businesses/"+args[0]+"/members", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var members []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&members)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EMAIL\tROLE\tSTATUS\tINVITE")
	for _, m := range members {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", m["email"], m["role"], m["employmentStatus"], m["inviteState"])
	}
	w.Flush()
}

func removeMember(args []string) {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	slug := fs.String("business", "", "business slug")
	userID := fs.String("user", "", "user id")
	fs.Parse(args)

	if *slug == "" || *userID == "" {
		fmt.Println("Error: business and user are required")
		return
	}
	status, err := del("/businesses/" + *slug + "/members/" + *userID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 204 {
		fmt.Println("✓ Member removed")
	} else {
		fmt.Printf("✗ Remove failed (status %d)\n", status)
	}
}

// Invite commands
func sendInvite(args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	slug := fs.String("business", "", "business slug")
	email := fs.String("email", "", "invitee email")
	role := fs.String("role", "employee", "business role")
	fs.Parse(args)

	if *slug == "" || *email == "" {
		fmt.Println("Error: business and email are required")
		return
	}
	result, status, err := post("/businesses/"+*slug+"/invitations", map[string]string{"email": *email, "role": *role})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 201 {
		fmt.Printf("✓ Invitation sent to %s\n  token: %v\n", *email, result["token"])
	} else {
		fmt.Printf("✗ Invite failed: %v\n", result)
	}
}

func acceptInvite(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: staffdesk invite accept <token>")
		return
	}
	result, status, err := post("/invitations/"+args[0]+"/accept", map[string]string{})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 200 {
		fmt.Printf("✓ Invitation: %v\n", result["status"])
	} else {
		fmt.Printf("✗ Accept failed: %v\n", result)
	}
}

func declineInvite(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: staffdesk invite decline <token>")
		return
	}
	status, err := postNoBody("/invitations/" + args[0] + "/decline")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 204 {
		fmt.Println("✓ Invitation declined")
	} else {
		fmt.Printf("✗ Decline failed (status %d)\n", status)
	}
}

// Admin commands
func listUsers() {
	req, _ := http.NewRequest("GET", getAPIURL()+"/users", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var users []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&users)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME")
	for _, u := range users {
		fmt.Fprintf(w, "%v\t%v\t%v\n", u["id"], u["email"], u["name"])
	}
	w.Flush()
}

func changeRole(args []string) {
	fs := flag.NewFlagSet("role", flag.ExitOnError)
	userID := fs.String("user", "", "user id")
	role := fs.String("role", "", "global role")
	fs.Parse(args)

	if *userID == "" {
		fmt.Println("Error: user is required")
		return
	}
	result, status, err := put("/users/"+*userID+"/role", map[string]string{"role": *role})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 200 {
		fmt.Println("✓ Role updated")
	} else {
		fmt.Printf("✗ Role change failed: %v\n", result)
	}
}

func impersonate(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: staffdesk admin impersonate <user-id>")
		return
	}
	result, status, err := post("/users/"+args[0]+"/impersonate", map[string]string{})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 200 {
		if tok, ok := result["token"].(string); ok {
			saveToken(tok)
			fmt.Printf("✓ Impersonating user %s (expires %v)\n", args[0], result["expiresAt"])
		}
	} else {
		fmt.Printf("✗ Impersonation failed: %v\n", result)
	}
}

// Helper functions
func post(path string, payload map[string]string) (map[string]interface{}, int, error) {
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", getAPIURL()+path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return result, resp.StatusCode, nil
}

func postNoBody(path string) (int, error) {
	req, _ := http.NewRequest("POST", getAPIURL()+path, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func put(path string, payload map[string]string) (map[string]interface{}, int, error) {
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("PUT", getAPIURL()+path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return result, resp.StatusCode, nil
}

func get(path string) (map[string]interface{}, int, error) {
	req, _ := http.NewRequest("GET", getAPIURL()+path, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return result, resp.StatusCode, nil
}

func del(path string) (int, error) {
	req, _ := http.NewRequest("DELETE", getAPIURL()+path, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func getAPIURL() string {
	if url := os.Getenv("STAFFDESK_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.staffdesk/token"
}

func saveToken(token string) error {
	os.MkdirAll(os.Getenv("HOME")+"/.staffdesk", 0700)
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
	fmt.Print(`StaffDesk CLI

Usage:
  staffdesk <command> [options]

Commands:
  auth      User authentication (register, login, logout, who)
  business  Business operations (list, create, get, delete)
  member    Roster operations (list, remove)
  invite    Invitation operations (send, accept, decline)
  admin     Admin operations (users, role, impersonate)
  help      Show this help message

Environment Variables:
  STAFFDESK_API    API endpoint (default: http://localhost:8080/api)

Examples:
  staffdesk auth register -email user@example.com -name User -password pass
  staffdesk business create -slug acme -name "Acme Inc"
  staffdesk invite send -business acme -email hire@example.com -role employee
`)
}
