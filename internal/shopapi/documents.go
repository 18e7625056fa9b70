package shopapi

const productsQuery = `
query Products {
  products {
    id
    name
    description
    price
    category { name }
    gender
    image1
    image2
  }
}`

const cartQuery = `
query Cart($userId: Int!) {
  cart(userId: $userId) {
    items {
      product {
        id
        name
        price
        category { name }
        image1
      }
      quantity
      subtotal
    }
  }
}`

const addToCartMutation = `
mutation AddToCart($userId: Int!, $productId: Int!, $quantity: Int!) {
  addProductToCart(userId: $userId, productId: $productId, quantity: $quantity) {
    id
    user
  }
}`

const updateCartProductMutation = `
mutation UpdateCartProduct($userId: Int!, $productId: Int!, $quantity: Int!) {
  updateCartProduct(userId: $userId, productId: $productId, quantity: $quantity) {
    id
    user
  }
}`

const deleteProductMutation = `
mutation DeleteProductFromCart($userId: Int!, $productId: Int!) {
  deleteProductFromCart(userId: $userId, productId: $productId) {
    id
    user
  }
}`

const placeOrderMutation = `
mutation PlaceOrder($userId: Int!) {
  placeOrder(userId: $userId) {
    id
    user
    totalPrice
    status
  }
}`

const notifyOrderMutation = `
mutation NotifyOrder($orderId: Int!) {
  notifyOrder(orderId: $orderId)
}`

const profileQuery = `
query GetProfile($userId: Int!) {
  profile(userId: $userId) {
    user
    address
    firstName
    lastName
    phoneNumber
    image
    email
  }
}`

const editProfileMutation = `
mutation EditProfile($userId: Int!, $username: String!, $address: String!, $firstName: String!, $lastName: String!, $phoneNumber: String!, $image: String) {
  editProfile(userId: $userId, username: $username, address: $address, firstName: $firstName, lastName: $lastName, phoneNumber: $phoneNumber, image: $image) {
    user
    address
    firstName
    lastName
    phoneNumber
    image
    email
  }
}`

const deleteProfileMutation = `
mutation DeleteProfile($userId: Int!) {
  deleteProfile(userId: $userId) {
    success
    message
  }
}`

const ordersQuery = `
query Orders($userId: Int!) {
  orders(userId: $userId) {
    id
    user
    createdAt
    orderItems {
      id
      product {
        id
        name
        price
        image1
      }
      quantity
      price
    }
  }
}`

const loginMutation = `
mutation Login($username: String!, $password: String!) {
  login(username: $username, password: $password) {
    accessToken
    refreshToken
    user {
      id
      username
      email
    }
  }
}`

const registerMutation = `
mutation Register($username: String!, $email: String!, $password: String!) {
  register(username: $username, email: $email, password: $password) {
    id
  }
}`
